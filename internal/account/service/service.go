// Package service implements the account use-cases: registration, login,
// the two-phase email-change workflow, password change, display-name update
// and the one-time national-ID assignment.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	"pymegate/internal/auth/credential"
	"pymegate/internal/auth/token"
	"pymegate/internal/platform/metrics"
	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/platform/audit/publisher"
	"pymegate/pkg/requestcontext"
)

const (
	// emailChangeCooldown is the minimum interval between verification
	// token requests from the same account.
	emailChangeCooldown = 30 * time.Second
	// emailChangeTTL bounds how long a confirmation token stays valid.
	emailChangeTTL = 15 * time.Minute
	// emailChangeTokenBytes of entropy per confirmation token, hex-encoded.
	emailChangeTokenBytes = 24
)

// Notifier delivers account notifications. Transport (SMTP, queue, ...) is
// an external concern; the workflow only needs a synchronous send that may
// fail.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service wires the account store, credential verifier, token issuer and
// notifier into the mutation workflows.
type Service struct {
	accounts    store.AccountStore
	credentials *credential.Verifier
	tokens      *token.Issuer
	notifier    Notifier

	auditlog   *publisher.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	production bool
}

type Option func(*Service)

// WithAudit attaches an audit publisher.
func WithAudit(pub *publisher.Publisher) Option {
	return func(s *Service) { s.auditlog = pub }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProductionMode suppresses the debug confirmation token in responses
// and turns notification failures on email-change requests into hard
// errors.
func WithProductionMode() Option {
	return func(s *Service) { s.production = true }
}

func New(accounts store.AccountStore, credentials *credential.Verifier, tokens *token.Issuer, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		accounts:    accounts,
		credentials: credentials,
		tokens:      tokens,
		notifier:    notifier,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthResult is returned by every operation that issues or reissues a
// bearer token.
type AuthResult struct {
	Token       string `json:"token"`
	RequiresRUT bool   `json:"requires_rut"`
}

// MailOutcome reports a single best-effort notification attempt.
type MailOutcome struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
}

func (s *Service) issueToken(account *models.Account) (AuthResult, error) {
	signed, err := s.tokens.Issue(token.Identity{
		AccountID:   account.ID,
		Role:        string(account.Role),
		NationalID:  account.NationalID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	})
	if err != nil {
		return AuthResult{}, err
	}
	s.metrics.IncTokenIssued()
	return AuthResult{Token: signed, RequiresRUT: account.RequiresRUT()}, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, accountID, email, reason string) {
	if s.auditlog == nil {
		return
	}
	event := audit.Event{
		Action:    string(action),
		AccountID: accountID,
		Email:     email,
		Reason:    reason,
		ClientIP:  requestcontext.ClientIP(ctx),
		Client:    clientSummary(requestcontext.UserAgent(ctx)),
	}
	if err := s.auditlog.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}

// clientSummary reduces a raw User-Agent to "Browser x.y on OS" for audit
// events, so raw header strings never reach the audit trail.
func clientSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}

func newConfirmationToken() (string, error) {
	buf := make([]byte, emailChangeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
