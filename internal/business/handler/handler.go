// Package handler exposes the business directory routes. Reads are public;
// writes are gated by ownership of the listing's RUT, with admins allowed
// everywhere.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pymegate/internal/auth/token"
	"pymegate/internal/business/models"
	"pymegate/internal/platform/middleware"
	dErrors "pymegate/pkg/domain-errors"
	"pymegate/pkg/platform/httputil"
	"pymegate/pkg/requestcontext"
)

// Service is the directory surface the handler needs.
type Service interface {
	Create(ctx context.Context, ownerNationalID string, req models.CreateBusinessRequest) (*models.Business, error)
	Get(ctx context.Context, id string) (*models.Business, error)
	Update(ctx context.Context, id string, req models.UpdateBusinessRequest) (*models.Business, error)
	SetStatus(ctx context.Context, id string, req models.SetStatusRequest) (*models.Business, error)
	Delete(ctx context.Context, id string) error
	OwnerNationalID(ctx context.Context, businessID string) (string, error)
}

type Handler struct {
	service Service
	tokens  *token.Issuer
	logger  *slog.Logger
}

func New(service Service, tokens *token.Issuer, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger}
}

// Register mounts the business routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/businesses/{businessID}", h.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Post("/businesses", h.HandleCreate)

		r.Route("/businesses/{businessID}", func(r chi.Router) {
			owned := middleware.RequireBusinessOwnerOrAdmin("businessID", h.service, h.logger)
			r.With(owned).Put("/", h.HandleUpdate)
			r.With(owned).Delete("/", h.HandleDelete)
			r.With(middleware.RequireAdmin).Put("/status", h.HandleSetStatus)
		})
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if identity.NationalID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "assign a RUT before registering a business"))
		return
	}

	req, decoded := httputil.DecodeAndPrepare[models.CreateBusinessRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !decoded {
		return
	}
	business, err := h.service.Create(ctx, identity.NationalID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, business)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	business, err := h.service.Get(r.Context(), chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, business)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.UpdateBusinessRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	business, err := h.service.Update(ctx, chi.URLParam(r, "businessID"), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, business)
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SetStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	business, err := h.service.SetStatus(ctx, chi.URLParam(r, "businessID"), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, business)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "businessID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
