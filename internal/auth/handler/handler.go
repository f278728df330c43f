// Package handler exposes the external-login endpoints. The callback can
// answer two ways: JSON for API clients, or a small HTML page that posts
// the token to the opener window when the flow runs in a popup.
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pymegate/internal/auth/oauth"
	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/platform/audit/publisher"
	"pymegate/pkg/platform/httputil"
)

const (
	stateCookie = "oauth_state"
	modeCookie  = "oauth_mode"
	stateTTL    = 10 * time.Minute
)

// Linker signs a provider profile into a local account.
type Linker interface {
	Link(ctx context.Context, profile oauth.Profile) (oauth.LinkResult, error)
}

type Handler struct {
	provider oauth.IdentityProvider
	linker   Linker
	auditlog *publisher.Publisher
	logger   *slog.Logger
}

func New(provider oauth.IdentityProvider, linker Linker, auditlog *publisher.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		provider: provider,
		linker:   linker,
		auditlog: auditlog,
		logger:   logger,
	}
}

// Register mounts the provider routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/google", h.HandleStart)
	r.Get("/auth/google/callback", h.HandleCallback)
}

// HandleStart redirects to the provider's consent page. mode=popup makes
// the callback answer with the postMessage page instead of JSON.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotImplemented, "external login is not configured"))
		return
	}

	state, err := newState()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate state"))
		return
	}

	secure := r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	if r.URL.Query().Get("mode") == "popup" {
		http.SetCookie(w, &http.Cookie{
			Name:     modeCookie,
			Value:    "popup",
			Path:     "/auth/google",
			MaxAge:   int(stateTTL.Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback redeems the authorization code and signs the account in.
// direct=1 skips the browser state cookie so API clients that obtained a
// code on their own can exchange it statelessly; those callers always get
// the plain JSON answer.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.provider == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotImplemented, "external login is not configured"))
		return
	}

	popup := false
	if r.URL.Query().Get("direct") != "1" {
		if c, err := r.Cookie(modeCookie); err == nil && c.Value == "popup" {
			popup = true
		}
		clearCookie(w, modeCookie)

		stateErr := verifyState(r)
		clearCookie(w, stateCookie)
		if stateErr != nil {
			h.respondError(w, popup, stateErr)
			return
		}
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		// The provider reports denial via error=access_denied.
		h.respondError(w, popup, dErrors.New(dErrors.CodeUnauthorized, "authorization was denied"))
		return
	}

	profile, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "oauth code exchange failed", "provider", h.provider.Name(), "error", err)
		h.respondError(w, popup, err)
		return
	}

	result, err := h.linker.Link(ctx, profile)
	if err != nil {
		h.respondError(w, popup, err)
		return
	}

	if h.auditlog != nil {
		event := audit.Event{
			Action: string(audit.EventOAuthLogin),
			Email:  profile.Email,
			Reason: h.provider.Name(),
		}
		if emitErr := h.auditlog.Emit(ctx, event); emitErr != nil {
			h.logger.ErrorContext(ctx, "failed to emit audit event", "error", emitErr)
		}
	}

	payload := map[string]any{
		"token":        result.Token,
		"requires_rut": result.RequiresRUT,
	}
	if popup {
		h.writePopup(w, payload)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) respondError(w http.ResponseWriter, popup bool, err error) {
	if popup {
		h.writePopup(w, map[string]any{"error": dErrors.MessageOf(err)})
		return
	}
	httputil.WriteError(w, err)
}

func verifyState(r *http.Request) error {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing login state")
	}
	if r.URL.Query().Get("state") != cookie.Value {
		return dErrors.New(dErrors.CodeUnauthorized, "login state mismatch")
	}
	return nil
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Path: "/auth/google", MaxAge: -1})
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// popupPage posts the result to the opener and closes itself. The payload
// is injected as JSON, never interpolated into markup.
var popupPage = template.Must(template.New("popup").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Signing in...</title></head>
<body>
<script>
(function () {
  var payload = {{.}};
  if (window.opener) {
    window.opener.postMessage(payload, window.location.origin);
  }
  window.close();
})();
</script>
</body>
</html>
`))

func (h *Handler) writePopup(w http.ResponseWriter, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode result"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := popupPage.Execute(w, template.JS(string(raw))); err != nil {
		h.logger.Error("failed to render popup page", "error", err)
	}
}
