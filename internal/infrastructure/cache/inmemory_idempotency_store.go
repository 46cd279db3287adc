package cache

import (
	"context"
	"sync"
	"time"

	"github.com/autoshop/billing/internal/domain/shared"
)

// InMemoryIdempotencyStore implements shared.IdempotencyStore on a map with
// per-entry expiry. State is process-local: in a multi-instance deployment
// each instance filters only its own redeliveries, and the database guard
// catches the rest.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiresAt map[string]time.Time
	stop      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its expiry sweep
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiresAt: make(map[string]time.Time),
		stop:      make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkProcessed records an event ID with a TTL.
// Returns true when the ID was new, false when it was already recorded.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.expiresAt[eventID]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	s.expiresAt[eventID] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed reports whether an unexpired record exists for the event ID
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deadline, ok := s.expiresAt[eventID]
	return ok && time.Now().Before(deadline), nil
}

// Close stops the expiry sweep. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

// Size returns the number of entries, expired entries included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiresAt)
}

func (s *InMemoryIdempotencyStore) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for eventID, deadline := range s.expiresAt {
				if now.After(deadline) {
					delete(s.expiresAt, eventID)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Ensure InMemoryIdempotencyStore implements shared.IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
