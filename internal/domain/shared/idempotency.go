package shared

import (
	"context"
	"time"
)

// IdempotencyStore is a fast-path duplicate filter in front of the
// authoritative consumed-event table. It stores processed event IDs with a
// TTL; a hit lets the consumer skip a delivery without opening a transaction.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for the duplicate pre-filter
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed event IDs. After this duration the
	// same event ID falls through to the database guard again.
	TTL time.Duration

	// Enabled determines whether the pre-filter is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default pre-filter configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
