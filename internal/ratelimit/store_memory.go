package ratelimit

import (
	"context"
	"sync"
	"time"

	"pymegate/pkg/requestcontext"
)

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// InMemoryStore is the single-process implementation. Expired windows are
// dropped lazily on access.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *InMemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &memoryEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt, nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		return 0, time.Time{}, nil
	}
	return entry.count, entry.resetAt, nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
