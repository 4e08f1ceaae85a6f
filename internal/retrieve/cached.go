package retrieve

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/alethia/internal/cache"
	"github.com/ppiankov/alethia/internal/model"
)

// CachedSearcher wraps a Searcher with a cache keyed by query. Cache
// failures degrade to a live search; a cache problem must never make
// evidence retrieval worse than having no cache at all.
type CachedSearcher struct {
	inner Searcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSearcher wraps inner with the given cache and entry TTL
func NewCachedSearcher(inner Searcher, c cache.Cache, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{
		inner: inner,
		cache: c,
		ttl:   ttl,
	}
}

// Search serves from cache when possible, falling back to the wrapped searcher
func (s *CachedSearcher) Search(ctx context.Context, query string) ([]model.EvidenceItem, error) {
	key := cache.CacheKey("search", query)

	if data, found := s.cache.Get(key); found {
		var items []model.EvidenceItem
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		// Corrupt entry: evict and search live
		_ = s.cache.Delete(key)
	}

	items, err := s.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		_ = s.cache.Set(key, data, s.ttl)
	}

	return items, nil
}
