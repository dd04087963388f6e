package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"
)

const defaultBlacklistPrefix = "blacklist"

// BlacklistRepository is the durable source of truth for revoked tokens,
// stored as presence-only keys under a fixed prefix with a bounded TTL.
type BlacklistRepository struct {
	client *red.Client
	prefix string
}

// NewBlacklistRepository wires a Redis client into a blacklist repository.
func NewBlacklistRepository(client *red.Client, keyPrefix string) *BlacklistRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultBlacklistPrefix
	}

	return &BlacklistRepository{client: client, prefix: prefix}
}

// Add persists a revoked token with a TTL matching the maximum token lifetime.
func (r *BlacklistRepository) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := r.key(token)
	if key == "" {
		return errors.New("token must not be empty")
	}

	// Presence is the only semantic; the value carries none.
	if err := r.client.Set(ctx, key, "true", ttl).Err(); err != nil {
		return fmt.Errorf("redis set blacklisted token: %w", err)
	}

	return nil
}

// Contains performs a point lookup for a single token.
func (r *BlacklistRepository) Contains(ctx context.Context, token string) (bool, error) {
	key := r.key(token)
	if key == "" {
		return false, errors.New("token must not be empty")
	}

	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists blacklisted token: %w", err)
	}

	return count > 0, nil
}

// List scans every key under the blacklist prefix and returns the tokens.
func (r *BlacklistRepository) List(ctx context.Context) ([]string, error) {
	var (
		tokens []string
		cursor uint64
	)
	pattern := r.prefix + ":*"
	strip := r.prefix + ":"

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 512).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan blacklist: %w", err)
		}

		for _, key := range keys {
			tokens = append(tokens, strings.TrimPrefix(key, strip))
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return tokens, nil
}

func (r *BlacklistRepository) key(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}
