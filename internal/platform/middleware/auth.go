package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pymegate/internal/account/models"
	"pymegate/internal/auth/token"
	dErrors "pymegate/pkg/domain-errors"
	"pymegate/pkg/platform/httputil"
	"pymegate/pkg/requestcontext"
	"pymegate/pkg/rut"
)

// RequireAuth verifies the Authorization bearer token and stores the
// resulting identity in the request context.
func RequireAuth(tokens *token.Issuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := tokens.VerifyHeader(r.Header.Get("Authorization"))
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin allows only accounts whose token carries the admin role.
// It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		if identity.Role != string(models.RoleAdmin) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelfOrAdmin allows the account whose ID appears in the named URL
// parameter, and admins acting on anyone.
func RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			target := chi.URLParam(r, param)
			if identity.AccountID != target && identity.Role != string(models.RoleAdmin) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot act on another account"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerResolver maps a business ID to the RUT of its owner.
type OwnerResolver interface {
	OwnerNationalID(ctx context.Context, businessID string) (string, error)
}

// RequireBusinessOwnerOrAdmin allows admins, and otherwise requires the
// caller's RUT to match the owner of the business named in the URL
// parameter. Callers without an assigned RUT can never match.
func RequireBusinessOwnerOrAdmin(param string, resolver OwnerResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if identity.Role == string(models.RoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}

			owner, err := resolver.OwnerNationalID(r.Context(), chi.URLParam(r, param))
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					httputil.WriteError(w, err)
					return
				}
				logger.ErrorContext(r.Context(), "failed to resolve business owner", "error", err)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner"))
				return
			}
			if identity.NationalID == "" || rut.Normalize(owner) != identity.NationalID {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not the owner of this business"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
