package service

import (
	"context"
	"errors"

	"pymegate/internal/account/store"
	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
)

// Delete removes an account. Authorization is the caller's concern; the
// service only enforces existence.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete account")
	}

	s.emitAudit(ctx, audit.EventAccountDeleted, account.ID, account.Email, "")
	s.logger.InfoContext(ctx, "account deleted", "account_id", account.ID)
	return nil
}
