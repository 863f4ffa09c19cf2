// ABOUTME: Expiring LRU of entity ids already created through the webhook
// ABOUTME: Lets replayed NEW_* deliveries be rejected without attempting a write

package dedupe

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache remembers keys for a bounded time and count. Once full, the least
// recently added key is evicted first. Safe for concurrent use.
//
// A Cache with a positive ttl owns a background goroutine that sweeps
// expired keys. The goroutine has no stop hook and lives until the process
// exits, so create one Cache per process (the gateway does) and never one
// per request.
type Cache struct {
	lru *expirable.LRU[string, struct{}]
}

// New creates a cache holding at most maxSize keys, each for ttl.
// A ttl <= 0 keeps keys until they are evicted by size and starts no
// sweeper goroutine.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, struct{}](maxSize, nil, ttl),
	}
}

// Contains returns true if the key has been added and has not expired.
func (c *Cache) Contains(key string) bool {
	// Peek checks expiry and leaves recency untouched
	_, ok := c.lru.Peek(key)
	return ok
}

// Add records the key, refreshing its expiry if already present.
func (c *Cache) Add(key string) {
	c.lru.Add(key, struct{}{})
}

// Remove forgets a key. It reports whether the key was present.
func (c *Cache) Remove(key string) bool {
	return c.lru.Remove(key)
}

// Len returns the number of live keys.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Close drops every key. The cache stays usable, and the sweeper goroutine
// keeps running.
func (c *Cache) Close() {
	c.lru.Purge()
}

// ConversationKey is the cache key for a conversation id.
func ConversationKey(id string) string {
	return "conversation:" + id
}

// MessageKey is the cache key for a message id.
func MessageKey(id string) string {
	return "message:" + id
}
