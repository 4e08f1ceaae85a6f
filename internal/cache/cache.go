package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the key-value store injected into the retrieval layer. The core
// verification path never touches it.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a namespaced key: alethia:v1:<kind>:<sha256 of value>.
// kind separates key spaces (search queries, fetched pages) so entries
// never collide across uses.
func CacheKey(kind, value string) string {
	hash := sha256.Sum256([]byte(value))
	return "alethia:v1:" + kind + ":" + hex.EncodeToString(hash[:])
}
