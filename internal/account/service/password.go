package service

import (
	"context"
	"errors"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/requestcontext"
)

// ChangePassword replaces the stored credential after re-verifying the
// current one.
func (s *Service) ChangePassword(ctx context.Context, accountID string, req models.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if ok, _ := s.credentials.Verify(req.OldPassword, account.Credential); !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := s.credentials.Hash(req.NewPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
	}
	account.Credential = hash
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.accounts.Update(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist credential")
	}

	s.emitAudit(ctx, audit.EventPasswordChanged, account.ID, account.Email, "")
	s.logger.InfoContext(ctx, "password changed", "account_id", account.ID)
	return nil
}
