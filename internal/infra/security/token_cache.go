package security

import (
	"container/list"
	"sync"
)

// TokenCache is a bounded strict-LRU cache mapping raw token strings to
// decoded claims. All operations are O(1); the mutex covers bookkeeping only
// and is never held across I/O.
type TokenCache struct {
	mu    sync.Mutex
	cap   int
	items map[string]*list.Element
	lru   *list.List
}

type tokenCacheEntry struct {
	token  string
	claims *Claims
}

const defaultTokenCacheSize = 1000

// NewTokenCache constructs an LRU cache with the given capacity.
func NewTokenCache(capacity int) *TokenCache {
	if capacity <= 0 {
		capacity = defaultTokenCacheSize
	}
	return &TokenCache{
		cap:   capacity,
		items: make(map[string]*list.Element, capacity),
		lru:   list.New(),
	}
}

// Get returns the cached claims for a token and promotes the entry.
func (c *TokenCache) Get(token string) (*Claims, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[token]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*tokenCacheEntry).claims, true
}

// Put inserts or refreshes an entry, evicting the least-recently-used entry
// when the cache is at capacity.
func (c *TokenCache) Put(token string, claims *Claims) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[token]; ok {
		el.Value.(*tokenCacheEntry).claims = claims
		c.lru.MoveToFront(el)
		return
	}

	if c.lru.Len() >= c.cap {
		if back := c.lru.Back(); back != nil {
			evicted := back.Value.(*tokenCacheEntry)
			delete(c.items, evicted.token)
			c.lru.Remove(back)
		}
	}

	c.items[token] = c.lru.PushFront(&tokenCacheEntry{token: token, claims: claims})
}

// Remove drops a token from the cache, if present.
func (c *TokenCache) Remove(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[token]; ok {
		delete(c.items, token)
		c.lru.Remove(el)
	}
}

// Len reports the number of cached entries.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
