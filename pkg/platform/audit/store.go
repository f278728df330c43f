package audit

import "context"

// Store persists audit events. Implementations must be safe for concurrent
// use; the async publisher appends from a background goroutine.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID string) ([]Event, error)
}

// Sink receives a copy of every event after it is persisted. Sinks are
// best-effort: a sink failure is logged by the publisher, never surfaced to
// the emitting request.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
