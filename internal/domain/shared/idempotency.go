package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so a redelivered event is
// handled at most once. Backed by Redis in production, in-memory for tests.
type IdempotencyStore interface {
	// MarkProcessed records an event ID with a TTL. Returns true if the event
	// was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases store resources
	Close() error
}

// IdempotencyConfig controls duplicate-event suppression.
type IdempotencyConfig struct {
	// TTL is how long a processed event ID is remembered. After it expires
	// the same event ID would be processed again. Default: 24 hours.
	TTL time.Duration

	// Enabled toggles the check. Default: true.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
