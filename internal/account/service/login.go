package service

import (
	"context"
	"errors"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
)

// Login verifies the presented credential against the stored one and
// returns a fresh token. A missing account and a wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return AuthResult{}, err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.IncLogin("failure")
			s.emitAudit(ctx, audit.EventLoginFailed, "", req.Email, "unknown email")
			return AuthResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	ok, legacy := s.credentials.Verify(req.Password, account.Credential)
	if !ok {
		s.metrics.IncLogin("failure")
		s.emitAudit(ctx, audit.EventLoginFailed, account.ID, account.Email, "credential mismatch")
		return AuthResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if legacy {
		// Legacy plaintext credentials are upgraded to a hash on first
		// successful use.
		s.metrics.IncLegacyCredentialUse()
		s.emitAudit(ctx, audit.EventLegacyCredentialUsed, account.ID, account.Email, "")
		if hash, hashErr := s.credentials.Hash(req.Password); hashErr == nil {
			account.Credential = hash
			if updErr := s.accounts.Update(ctx, account); updErr != nil {
				s.logger.WarnContext(ctx, "failed to upgrade legacy credential", "error", updErr, "account_id", account.ID)
			}
		}
	}

	s.metrics.IncLogin("success")
	s.emitAudit(ctx, audit.EventLoginSucceeded, account.ID, account.Email, "")
	s.emitAudit(ctx, audit.EventTokenIssued, account.ID, account.Email, "")

	return s.issueToken(account)
}
