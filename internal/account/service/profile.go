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

// UpdateDisplayName changes the account's display name and reissues the
// token, since the name travels inside the claims.
func (s *Service) UpdateDisplayName(ctx context.Context, accountID string, req models.UpdateDisplayNameRequest) (AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return AuthResult{}, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	account.DisplayName = req.DisplayName
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.accounts.Update(ctx, account); err != nil {
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist display name")
	}

	s.emitAudit(ctx, audit.EventDisplayNameUpdated, account.ID, account.Email, "")
	return s.issueToken(account)
}

// AssignNationalID sets the account's RUT exactly once. Accounts created
// through OAuth start without one and complete their profile here; a RUT,
// once set, is immutable.
func (s *Service) AssignNationalID(ctx context.Context, accountID string, req models.AssignNationalIDRequest) (AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return AuthResult{}, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if err := account.CanAssignNationalID(); err != nil {
		return AuthResult{}, err
	}

	account.NationalID = req.NationalID
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return AuthResult{}, dErrors.New(dErrors.CodeConflict, "RUT already registered")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist RUT")
	}

	s.metrics.IncRUTAssignment()
	s.emitAudit(ctx, audit.EventRUTAssigned, account.ID, account.Email, "")
	return s.issueToken(account)
}
