package retrieve

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/alethia/internal/cache"
	"github.com/ppiankov/alethia/internal/model"
)

type stubSearcher struct {
	items []model.EvidenceItem
	err   error
	calls atomic.Int32
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]model.EvidenceItem, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	return cache.NewMemoryCache(time.Minute, time.Minute)
}

func TestCachedSearcher_SecondCallServedFromCache(t *testing.T) {
	stub := &stubSearcher{items: []model.EvidenceItem{
		{Title: "a", Snippet: "b", URL: "https://example.com"},
	}}

	searcher := NewCachedSearcher(stub, newTestCache(t), time.Minute)

	first, err := searcher.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := searcher.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Expected no error on cached call, got %v", err)
	}

	if stub.calls.Load() != 1 {
		t.Errorf("Expected 1 live search, got %d", stub.calls.Load())
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("Expected 1 item from both calls, got %d and %d", len(first), len(second))
	}
	if second[0] != first[0] {
		t.Errorf("Expected cached item %+v, got %+v", first[0], second[0])
	}
}

func TestCachedSearcher_DistinctQueries(t *testing.T) {
	stub := &stubSearcher{items: []model.EvidenceItem{}}

	searcher := NewCachedSearcher(stub, newTestCache(t), time.Minute)

	if _, err := searcher.Search(context.Background(), "first"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := searcher.Search(context.Background(), "second"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if stub.calls.Load() != 2 {
		t.Errorf("Expected 2 live searches for distinct queries, got %d", stub.calls.Load())
	}
}

func TestCachedSearcher_CorruptEntryFallsBack(t *testing.T) {
	stub := &stubSearcher{items: []model.EvidenceItem{
		{Title: "live", URL: "https://example.com"},
	}}

	c := newTestCache(t)
	key := cache.CacheKey("search", "query")
	if err := c.Set(key, []byte("not json"), time.Minute); err != nil {
		t.Fatalf("Expected seed to succeed, got %v", err)
	}

	searcher := NewCachedSearcher(stub, c, time.Minute)
	items, err := searcher.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Expected live fallback, got %v", err)
	}
	if stub.calls.Load() != 1 {
		t.Errorf("Expected corrupt entry to trigger live search, got %d calls", stub.calls.Load())
	}
	if len(items) != 1 || items[0].Title != "live" {
		t.Errorf("Expected live result, got %+v", items)
	}
}

func TestCachedSearcher_ErrorsNotCached(t *testing.T) {
	stub := &stubSearcher{err: errors.New("search down")}

	searcher := NewCachedSearcher(stub, newTestCache(t), time.Minute)

	if _, err := searcher.Search(context.Background(), "query"); err == nil {
		t.Fatal("Expected error from failing searcher")
	}

	stub.err = nil
	stub.items = []model.EvidenceItem{{Title: "recovered", URL: "https://example.com"}}

	items, err := searcher.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if stub.calls.Load() != 2 {
		t.Errorf("Expected failed search not cached, got %d calls", stub.calls.Load())
	}
	if len(items) != 1 || items[0].Title != "recovered" {
		t.Errorf("Expected recovered result, got %+v", items)
	}
}
