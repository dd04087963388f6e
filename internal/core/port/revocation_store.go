package port

import (
	"context"
	"time"
)

// RevocationStore is the durable source of truth for revoked tokens.
// Entries expire on their own once the TTL elapses; the store never needs
// explicit deletion.
type RevocationStore interface {
	// Add persists a revoked token with a bounded TTL.
	Add(ctx context.Context, token string, ttl time.Duration) error
	// Contains performs a point lookup for a single token.
	Contains(ctx context.Context, token string) (bool, error)
	// List returns every currently revoked token.
	List(ctx context.Context) ([]string, error)
}
