package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/requestcontext"
)

// CooldownError signals that a verification token was requested before the
// previous request's cooldown elapsed. RetryAfter is how long the caller
// must wait.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("email change requested too soon, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return dErrors.New(dErrors.CodeTooManyRequests, "email change requested too soon")
}

// RequestEmailChangeResult reports the pending state created by
// RequestEmailChange. DebugToken carries the confirmation token outside
// production so the flow can be exercised without a mailbox.
type RequestEmailChangeResult struct {
	ExpiresAt  time.Time   `json:"expires_at"`
	DebugToken string      `json:"debug_token,omitempty"`
	Mail       MailOutcome `json:"mail"`
}

// ConfirmEmailChangeResult carries the reissued token plus the per-address
// notification outcomes.
type ConfirmEmailChangeResult struct {
	Auth    AuthResult  `json:"auth"`
	MailNew MailOutcome `json:"mail_new"`
	MailOld MailOutcome `json:"mail_old"`
}

// RequestEmailChange starts the two-phase email change: it records the
// requested address together with a fresh confirmation token and notifies
// the account's current address. The stored address does not change here.
func (s *Service) RequestEmailChange(ctx context.Context, accountID string, req models.RequestEmailChangeRequest) (RequestEmailChangeResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return RequestEmailChangeResult{}, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RequestEmailChangeResult{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return RequestEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if req.NewEmail == account.Email {
		return RequestEmailChangeResult{}, dErrors.New(dErrors.CodeValidation, "new email matches the current one")
	}
	if _, err := s.accounts.FindByEmail(ctx, req.NewEmail); err == nil {
		return RequestEmailChangeResult{}, dErrors.New(dErrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return RequestEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email availability")
	}

	now := requestcontext.Now(ctx)
	if pending := account.PendingEmailChange; pending != nil {
		if elapsed := now.Sub(pending.LastRequestedAt); elapsed < emailChangeCooldown {
			return RequestEmailChangeResult{}, &CooldownError{RetryAfter: emailChangeCooldown - elapsed}
		}
	}

	confirmation, err := newConfirmationToken()
	if err != nil {
		return RequestEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate confirmation token")
	}

	account.PendingEmailChange = &models.PendingEmailChange{
		NewEmail:        req.NewEmail,
		Token:           confirmation,
		ExpiresAt:       now.Add(emailChangeTTL),
		LastRequestedAt: now,
	}
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		return RequestEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist pending email change")
	}

	s.metrics.IncEmailChangeRequest()
	s.emitAudit(ctx, audit.EventEmailChangeRequested, account.ID, req.NewEmail, "")

	result := RequestEmailChangeResult{ExpiresAt: account.PendingEmailChange.ExpiresAt}
	if !s.production {
		result.DebugToken = confirmation
	}

	body := fmt.Sprintf(
		"A change of your account email to %s was requested. Confirm with token %s within %d minutes. If this was not you, ignore this message.",
		req.NewEmail, confirmation, int(emailChangeTTL.Minutes()),
	)
	result.Mail = s.send(ctx, account.Email, "Confirm your email change", body)
	if !result.Mail.Sent && s.production {
		// The pending state is already stored, so a retry after the
		// cooldown can succeed without losing the token.
		return RequestEmailChangeResult{}, dErrors.New(dErrors.CodeUnavailable, "failed to deliver confirmation email")
	}
	return result, nil
}

// ConfirmEmailChange completes the swap: it checks the token against the
// pending request, applies the new address, reissues the bearer token and
// notifies both the new and the old address.
func (s *Service) ConfirmEmailChange(ctx context.Context, accountID string, req models.ConfirmEmailChangeRequest) (ConfirmEmailChangeResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return ConfirmEmailChangeResult{}, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ConfirmEmailChangeResult{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return ConfirmEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	pending := account.PendingEmailChange
	if pending == nil {
		return ConfirmEmailChangeResult{}, dErrors.New(dErrors.CodeBadRequest, "no pending email change")
	}

	// A wrong token never touches the pending record, even when it has
	// already expired; only a holder of the real token triggers the
	// expiry cleanup.
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(pending.Token)) != 1 {
		return ConfirmEmailChangeResult{}, dErrors.New(dErrors.CodeUnauthorized, "invalid confirmation token")
	}

	now := requestcontext.Now(ctx)
	if now.After(pending.ExpiresAt) {
		account.PendingEmailChange = nil
		account.UpdatedAt = now
		if updErr := s.accounts.Update(ctx, account); updErr != nil {
			s.logger.WarnContext(ctx, "failed to clear expired email change", "error", updErr, "account_id", account.ID)
		}
		s.emitAudit(ctx, audit.EventEmailChangeExpired, account.ID, pending.NewEmail, "")
		return ConfirmEmailChangeResult{}, dErrors.New(dErrors.CodeExpired, "confirmation token expired")
	}

	oldEmail := account.Email
	account.Email = pending.NewEmail
	account.PendingEmailChange = nil
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ConfirmEmailChangeResult{}, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return ConfirmEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply email change")
	}

	s.metrics.IncEmailChangeDone()
	s.emitAudit(ctx, audit.EventEmailChangeConfirmed, account.ID, account.Email, "")

	auth, err := s.issueToken(account)
	if err != nil {
		return ConfirmEmailChangeResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reissue token")
	}

	result := ConfirmEmailChangeResult{Auth: auth}
	result.MailNew = s.send(ctx, account.Email, "Email change confirmed",
		fmt.Sprintf("Your account email is now %s.", account.Email))
	result.MailOld = s.send(ctx, oldEmail, "Your account email was changed",
		fmt.Sprintf("The email on your account was changed from %s to %s.", oldEmail, account.Email))
	return result, nil
}

// send performs one best-effort notification. Failures are reported, not
// returned, so independent sends never mask each other.
func (s *Service) send(ctx context.Context, to, subject, body string) MailOutcome {
	if s.notifier == nil {
		return MailOutcome{Sent: false, Reason: "mail delivery not configured"}
	}
	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.logger.WarnContext(ctx, "failed to send notification", "error", err, "to", to)
		return MailOutcome{Sent: false, Reason: err.Error()}
	}
	return MailOutcome{Sent: true}
}
