package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymegate/internal/account/store"
	"pymegate/internal/auth/credential"
	"pymegate/internal/auth/oauth"
	"pymegate/internal/auth/token"
	dErrors "pymegate/pkg/domain-errors"
)

type fakeProvider struct {
	validCode string
	profile   oauth.Profile
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/consent?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (oauth.Profile, error) {
	if code != p.validCode {
		return oauth.Profile{}, dErrors.New(dErrors.CodeUnauthorized, "authorization code rejected")
	}
	return p.profile, nil
}

func newTestRouter(provider oauth.IdentityProvider) (chi.Router, *token.Issuer) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := token.NewIssuer("test-signing-key", "pymegate-test")
	linker := oauth.NewLinker(store.NewInMemory(), credential.NewVerifier(credential.WithCost(4)), issuer, logger)

	router := chi.NewRouter()
	New(provider, linker, nil, logger).Register(router)
	return router, issuer
}

func stateFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			return c
		}
	}
	t.Fatal("state cookie not set")
	return nil
}

func TestHandleStart(t *testing.T) {
	provider := &fakeProvider{}
	router, _ := newTestRouter(provider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	state := stateFrom(t, rec)
	assert.NotEmpty(t, state.Value)
	assert.Equal(t, "https://provider.example/consent?state="+state.Value, rec.Header().Get("Location"))
}

func TestHandleCallback_JSON(t *testing.T) {
	provider := &fakeProvider{
		validCode: "good-code",
		profile:   oauth.Profile{Email: "nueva@gmail.com", DisplayName: "Nueva Cuenta"},
	}
	router, issuer := newTestRouter(provider)

	start := httptest.NewRecorder()
	router.ServeHTTP(start, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	state := stateFrom(t, start)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=good-code&state="+state.Value, nil)
	req.AddCookie(state)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), `"requires_rut":true`)

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	identity, err := issuer.Verify(payload.Token)
	require.NoError(t, err)
	assert.Equal(t, "nueva@gmail.com", identity.Email)
}

func TestHandleCallback_Direct(t *testing.T) {
	provider := &fakeProvider{
		validCode: "good-code",
		profile:   oauth.Profile{Email: "api@gmail.com", DisplayName: "API Cliente"},
	}
	router, issuer := newTestRouter(provider)

	// No prior /auth/google visit, no cookies: the caller brings its own code.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?direct=1&code=good-code", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	identity, err := issuer.Verify(payload.Token)
	require.NoError(t, err)
	assert.Equal(t, "api@gmail.com", identity.Email)
}

func TestHandleCallback_DirectRejectedCode(t *testing.T) {
	provider := &fakeProvider{validCode: "good-code"}
	router, _ := newTestRouter(provider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?direct=1&code=stale", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCallback_Popup(t *testing.T) {
	provider := &fakeProvider{
		validCode: "good-code",
		profile:   oauth.Profile{Email: "popup@gmail.com"},
	}
	router, _ := newTestRouter(provider)

	start := httptest.NewRecorder()
	router.ServeHTTP(start, httptest.NewRequest(http.MethodGet, "/auth/google?mode=popup", nil))
	state := stateFrom(t, start)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=good-code&state="+state.Value, nil)
	req.AddCookie(state)
	req.AddCookie(&http.Cookie{Name: modeCookie, Value: "popup"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "postMessage")
	assert.Contains(t, body, `"token"`)
	assert.False(t, strings.Contains(body, "error"), "popup payload should not carry an error")
}

func TestHandleCallback_StateMismatch(t *testing.T) {
	provider := &fakeProvider{validCode: "good-code"}
	router, _ := newTestRouter(provider)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=good-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "legit"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCallback_RejectedCode(t *testing.T) {
	provider := &fakeProvider{validCode: "good-code"}
	router, _ := newTestRouter(provider)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=stale&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleStart_NotConfigured(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
