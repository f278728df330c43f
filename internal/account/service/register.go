package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/requestcontext"
)

// Register creates an account and returns a freshly issued token so the
// caller is signed in immediately.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.credentials.Hash(req.Password)
	if err != nil {
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
	}

	now := requestcontext.Now(ctx)
	account := &models.Account{
		ID:          uuid.NewString(),
		NationalID:  req.NationalID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Credential:  hash,
		Role:        models.ParseRole(req.Role),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return AuthResult{}, dErrors.New(dErrors.CodeConflict, "email or RUT already registered")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.metrics.IncAccountsCreated()
	s.emitAudit(ctx, audit.EventAccountCreated, account.ID, account.Email, "")
	s.logger.InfoContext(ctx, "account created", "account_id", account.ID, "role", account.Role)

	return s.issueToken(account)
}
