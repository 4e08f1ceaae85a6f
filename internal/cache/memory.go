package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the fast in-process layer, backed by patrickmn/go-cache
// which handles TTLs and periodic cleanup.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates a memory cache with the given default TTL and
// expired-entry cleanup interval
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(defaultTTL, cleanupInterval)}
}

// Get retrieves a value
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	return data, ok
}

// Set stores a value; ttl 0 uses the default given at construction
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.entries.Set(key, value, ttl)
	return nil
}

// Delete removes a value
func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear removes every entry
func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}
