package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymegate/internal/auth/token"
	dErrors "pymegate/pkg/domain-errors"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	issuer := token.NewIssuer("test-key", "pymegate-test")
	handler := RequireAuth(issuer, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, "acct-1", identity.AccountID)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token passes identity through", func(t *testing.T) {
		signed, err := issuer.Issue(token.Identity{AccountID: "acct-1", Role: "standard", Email: "a@b.cl"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func identityRequest(t *testing.T, method, target string, identity token.Identity, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	ctx := WithIdentity(req.Context(), identity)
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(okHandler())

	t.Run("admin passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, identityRequest(t, http.MethodGet, "/", token.Identity{AccountID: "a", Role: "admin"}, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("standard forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, identityRequest(t, http.MethodGet, "/", token.Identity{AccountID: "a", Role: "standard"}, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireSelfOrAdmin(t *testing.T) {
	handler := RequireSelfOrAdmin("accountID")(okHandler())

	cases := []struct {
		name     string
		identity token.Identity
		target   string
		want     int
	}{
		{"self", token.Identity{AccountID: "acct-1", Role: "standard"}, "acct-1", http.StatusOK},
		{"admin on another account", token.Identity{AccountID: "acct-2", Role: "admin"}, "acct-1", http.StatusOK},
		{"standard on another account", token.Identity{AccountID: "acct-2", Role: "standard"}, "acct-1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := identityRequest(t, http.MethodGet, "/accounts/"+tc.target, tc.identity,
				map[string]string{"accountID": tc.target})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

type staticResolver struct {
	owner string
	err   error
}

func (r staticResolver) OwnerNationalID(context.Context, string) (string, error) {
	return r.owner, r.err
}

func TestRequireBusinessOwnerOrAdmin(t *testing.T) {
	params := map[string]string{"businessID": "biz-1"}

	t.Run("matching owner RUT passes", func(t *testing.T) {
		handler := RequireBusinessOwnerOrAdmin("businessID", staticResolver{owner: "12.345.678-5"}, discardLogger())(okHandler())
		req := identityRequest(t, http.MethodPut, "/businesses/biz-1", token.Identity{AccountID: "a", Role: "standard", NationalID: "12345678-5"}, params)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		handler := RequireBusinessOwnerOrAdmin("businessID", staticResolver{owner: "99999999-9"}, discardLogger())(okHandler())
		req := identityRequest(t, http.MethodPut, "/businesses/biz-1", token.Identity{AccountID: "a", Role: "admin"}, params)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("different owner forbidden", func(t *testing.T) {
		handler := RequireBusinessOwnerOrAdmin("businessID", staticResolver{owner: "7775593-4"}, discardLogger())(okHandler())
		req := identityRequest(t, http.MethodPut, "/businesses/biz-1", token.Identity{AccountID: "a", Role: "standard", NationalID: "12345678-5"}, params)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("caller without RUT forbidden", func(t *testing.T) {
		handler := RequireBusinessOwnerOrAdmin("businessID", staticResolver{owner: ""}, discardLogger())(okHandler())
		req := identityRequest(t, http.MethodPut, "/businesses/biz-1", token.Identity{AccountID: "a", Role: "standard"}, params)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown business is 404", func(t *testing.T) {
		resolver := staticResolver{err: dErrors.New(dErrors.CodeNotFound, "business not found")}
		handler := RequireBusinessOwnerOrAdmin("businessID", resolver, discardLogger())(okHandler())
		req := identityRequest(t, http.MethodPut, "/businesses/biz-1", token.Identity{AccountID: "a", Role: "standard", NationalID: "12345678-5"}, params)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
