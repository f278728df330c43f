// Package ratelimit throttles repeated failed logins per email and client
// IP pair using a fixed counting window.
package ratelimit

import (
	"context"
	"time"
)

// Store counts failures per key. Incr starts the window on the first
// failure and returns the count plus when the window resets; Clear drops
// the key after a successful login.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Get(ctx context.Context, key string) (count int, resetAt time.Time, err error)
	Clear(ctx context.Context, key string) error
}
