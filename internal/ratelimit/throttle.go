package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dErrors "pymegate/pkg/domain-errors"
	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/platform/audit/publisher"
	"pymegate/pkg/requestcontext"
)

const (
	defaultMaxFailures = 5
	defaultWindow      = 15 * time.Minute
)

// ThrottledError reports how long a blocked caller must wait. It unwraps
// to a too-many-requests domain error for transport mapping.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed logins, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error {
	return dErrors.New(dErrors.CodeTooManyRequests, "too many failed login attempts")
}

// Throttle blocks login attempts for an email and IP pair once the
// failure budget inside the window is spent. Failed checks never mask a
// store outage: when the store errors the attempt is allowed through.
type Throttle struct {
	store       Store
	maxFailures int
	window      time.Duration
	auditlog    *publisher.Publisher
	logger      *slog.Logger
}

type Option func(*Throttle)

func WithLimits(maxFailures int, window time.Duration) Option {
	return func(t *Throttle) {
		t.maxFailures = maxFailures
		t.window = window
	}
}

func WithAudit(pub *publisher.Publisher) Option {
	return func(t *Throttle) { t.auditlog = pub }
}

func NewThrottle(store Store, logger *slog.Logger, opts ...Option) *Throttle {
	t := &Throttle{
		store:       store,
		maxFailures: defaultMaxFailures,
		window:      defaultWindow,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func key(email, ip string) string {
	return email + "|" + ip
}

// Check rejects the attempt when the pair is over budget.
func (t *Throttle) Check(ctx context.Context, email, ip string) error {
	count, resetAt, err := t.store.Get(ctx, key(email, ip))
	if err != nil {
		t.logger.WarnContext(ctx, "throttle store unavailable, allowing attempt", "error", err)
		return nil
	}
	if count < t.maxFailures {
		return nil
	}

	retryAfter := resetAt.Sub(requestcontext.Now(ctx))
	if retryAfter < 0 {
		retryAfter = 0
	}
	if t.auditlog != nil {
		event := audit.Event{
			Action:   string(audit.EventLoginThrottled),
			Email:    email,
			ClientIP: ip,
		}
		if emitErr := t.auditlog.Emit(ctx, event); emitErr != nil {
			t.logger.ErrorContext(ctx, "failed to emit audit event", "error", emitErr)
		}
	}
	return &ThrottledError{RetryAfter: retryAfter}
}

// RecordFailure counts one failed attempt.
func (t *Throttle) RecordFailure(ctx context.Context, email, ip string) {
	if _, _, err := t.store.Incr(ctx, key(email, ip), t.window); err != nil {
		t.logger.WarnContext(ctx, "failed to record login failure", "error", err)
	}
}

// Reset clears the counter after a successful login.
func (t *Throttle) Reset(ctx context.Context, email, ip string) {
	if err := t.store.Clear(ctx, key(email, ip)); err != nil {
		t.logger.WarnContext(ctx, "failed to reset login throttle", "error", err)
	}
}
