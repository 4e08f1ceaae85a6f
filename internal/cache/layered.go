package cache

import "time"

// LayeredCache reads through an ordered list of layers, copying hits into
// the layers above them. The standard pair is memory in front of disk:
// search responses survive restarts via the disk layer while hot queries
// stay in memory.
type LayeredCache struct {
	layers []Cache
}

// NewLayeredCache assembles the standard memory+disk pair
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{layers: []Cache{
		NewMemoryCache(memoryTTL, 10*time.Minute),
		NewDiskCache(diskDir, diskTTL),
	}}
}

// Get walks the layers front to back. A hit in a deeper layer is promoted
// into every layer in front of it under those layers' default TTLs.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	for i, layer := range c.layers {
		val, found := layer.Get(key)
		if !found {
			continue
		}
		for _, upper := range c.layers[:i] {
			_ = upper.Set(key, val, 0)
		}
		return val, true
	}
	return nil, false
}

// Set writes through to every layer, reporting the first failure
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	var firstErr error
	for _, layer := range c.layers {
		if err := layer.Set(key, value, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Delete removes the key from every layer, best effort
func (c *LayeredCache) Delete(key string) error {
	for _, layer := range c.layers {
		_ = layer.Delete(key)
	}
	return nil
}

// Clear empties every layer, reporting the first failure
func (c *LayeredCache) Clear() error {
	var firstErr error
	for _, layer := range c.layers {
		if err := layer.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
