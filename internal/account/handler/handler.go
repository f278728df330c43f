// Package handler exposes the account endpoints: registration, login,
// and the authenticated mutation routes guarded by the self-or-admin and
// admin policies.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pymegate/internal/account/models"
	"pymegate/internal/account/service"
	"pymegate/internal/auth/token"
	bizmodels "pymegate/internal/business/models"
	"pymegate/internal/platform/middleware"
	"pymegate/internal/ratelimit"
	dErrors "pymegate/pkg/domain-errors"
	"pymegate/pkg/platform/httputil"
	"pymegate/pkg/requestcontext"
)

// Service is the account use-case surface the handler needs.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (service.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (service.AuthResult, error)
	Get(ctx context.Context, accountID string) (service.AccountView, error)
	Delete(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID string, req models.ChangePasswordRequest) error
	RequestEmailChange(ctx context.Context, accountID string, req models.RequestEmailChangeRequest) (service.RequestEmailChangeResult, error)
	ConfirmEmailChange(ctx context.Context, accountID string, req models.ConfirmEmailChangeRequest) (service.ConfirmEmailChangeResult, error)
	UpdateDisplayName(ctx context.Context, accountID string, req models.UpdateDisplayNameRequest) (service.AuthResult, error)
	AssignNationalID(ctx context.Context, accountID string, req models.AssignNationalIDRequest) (service.AuthResult, error)
}

// BusinessLister resolves the listings owned by a RUT, for the
// owned-businesses route.
type BusinessLister interface {
	ListByOwner(ctx context.Context, ownerNationalID string) ([]*bizmodels.Business, error)
}

type Handler struct {
	service    Service
	businesses BusinessLister
	tokens     *token.Issuer
	throttle   *ratelimit.Throttle
	logger     *slog.Logger
}

func New(svc Service, businesses BusinessLister, tokens *token.Issuer, throttle *ratelimit.Throttle, logger *slog.Logger) *Handler {
	return &Handler{
		service:    svc,
		businesses: businesses,
		tokens:     tokens,
		throttle:   throttle,
		logger:     logger,
	}
}

// Register mounts the account routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))

		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSelfOrAdmin("accountID"))
				r.Get("/", h.HandleGet)
				r.Put("/password", h.HandleChangePassword)
				r.Post("/email-change", h.HandleRequestEmailChange)
				r.Post("/email-change/confirm", h.HandleConfirmEmailChange)
				r.Put("/display-name", h.HandleUpdateDisplayName)
				r.Post("/rut", h.HandleAssignNationalID)
				r.Get("/businesses", h.HandleListBusinesses)
			})
			r.With(middleware.RequireAdmin).Delete("/", h.HandleDelete)
		})
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.Register(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	ip := requestcontext.ClientIP(ctx)
	if h.throttle != nil {
		if err := h.throttle.Check(ctx, req.Email, ip); err != nil {
			writeWithRetryAfter(w, err)
			return
		}
	}

	result, err := h.service.Login(ctx, req)
	if err != nil {
		if h.throttle != nil && dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.throttle.RecordFailure(ctx, req.Email, ip)
		}
		httputil.WriteError(w, err)
		return
	}
	if h.throttle != nil {
		h.throttle.Reset(ctx, req.Email, ip)
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "accountID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ChangePasswordRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.ChangePassword(ctx, chi.URLParam(r, "accountID"), req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleRequestEmailChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RequestEmailChangeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.RequestEmailChange(ctx, chi.URLParam(r, "accountID"), req)
	if err != nil {
		writeWithRetryAfter(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ConfirmEmailChangeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.ConfirmEmailChange(ctx, chi.URLParam(r, "accountID"), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleUpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.UpdateDisplayNameRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.UpdateDisplayName(ctx, chi.URLParam(r, "accountID"), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleAssignNationalID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.AssignNationalIDRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.AssignNationalID(ctx, chi.URLParam(r, "accountID"), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleListBusinesses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.Get(ctx, chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if view.NationalID == "" {
		httputil.WriteJSON(w, http.StatusOK, []*bizmodels.Business{})
		return
	}
	owned, err := h.businesses.ListByOwner(ctx, view.NationalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, owned)
}

// writeWithRetryAfter sets the Retry-After header for cooldown and
// throttle rejections before rendering the error body.
func writeWithRetryAfter(w http.ResponseWriter, err error) {
	var cooldown *service.CooldownError
	if errors.As(err, &cooldown) {
		w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(cooldown.RetryAfter)))
	}
	var throttled *ratelimit.ThrottledError
	if errors.As(err, &throttled) {
		w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(throttled.RetryAfter)))
	}
	httputil.WriteError(w, err)
}

func ceilSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
