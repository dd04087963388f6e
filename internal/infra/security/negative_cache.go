package security

import (
	"sync"
	"time"
)

// NegativeCache remembers tokens that already failed verification so
// repeated presentations are rejected without paying for crypto again.
// Entries age out after the TTL; a periodic sweep removes stale ones.
type NegativeCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

const defaultNegativeTTL = 30 * time.Minute

// NewNegativeCache constructs a negative cache with the given entry TTL.
func NewNegativeCache(ttl time.Duration) *NegativeCache {
	if ttl <= 0 {
		ttl = defaultNegativeTTL
	}
	cache := &NegativeCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
	cache.now = func() time.Time { return time.Now().UTC() }
	return cache
}

// WithClock overrides the internal clock for deterministic testing.
func (c *NegativeCache) WithClock(clock func() time.Time) *NegativeCache {
	if clock != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.now = clock
	}
	return c
}

// Add records a token as known-bad.
func (c *NegativeCache) Add(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = c.now()
}

// Contains reports whether the token is a known-bad entry within its TTL.
// Stale entries are treated as absent; the sweep removes them later.
func (c *NegativeCache) Contains(token string) bool {
	c.mu.RLock()
	addedAt, ok := c.entries[token]
	now := c.now()
	c.mu.RUnlock()

	return ok && now.Sub(addedAt) <= c.ttl
}

// Sweep removes entries older than the TTL and returns how many were dropped.
func (c *NegativeCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for token, addedAt := range c.entries {
		if now.Sub(addedAt) > c.ttl {
			delete(c.entries, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, including any not yet swept.
func (c *NegativeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
