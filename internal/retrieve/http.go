package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/util"
	"github.com/ppiankov/alethia/internal/worker"
)

const searchMaxRetries = 3

// searchSleepFunc is the sleep function used between retries (injectable for tests)
var searchSleepFunc = time.Sleep

// HTTPSearcher queries a SearxNG-compatible instance for evidence. Every
// request goes through the per-domain rate limiter and transient failures
// are retried with exponential backoff.
type HTTPSearcher struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxResults int
	maxBytes   int64
	limiter    *worker.Limiter
}

// searchResponse mirrors the SearxNG JSON output format
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// NewHTTPSearcher creates a searcher against cfg.Retrieve.BaseURL
func NewHTTPSearcher(cfg *model.Config, limiter *worker.Limiter) *HTTPSearcher {
	timeout := cfg.Retrieve.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.Retrieve.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	proxyFunc := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	return &HTTPSearcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL:    strings.TrimRight(cfg.Retrieve.BaseURL, "/"),
		userAgent:  cfg.HTTP.UserAgent,
		maxResults: maxResults,
		maxBytes:   cfg.HTTP.MaxBodyBytes,
		limiter:    limiter,
	}
}

// Search queries the search endpoint, retrying transient failures
func (s *HTTPSearcher) Search(ctx context.Context, query string) ([]model.EvidenceItem, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("search: no endpoint configured")
	}

	var items []model.EvidenceItem
	var err error
	for attempt := 0; attempt < searchMaxRetries; attempt++ {
		items, err = s.searchOnce(ctx, query)
		if err == nil || !isRetryableSearchError(err) {
			return items, err
		}
		if attempt < searchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			searchSleepFunc(backoff)
		}
	}
	return nil, err
}

// searchOnce performs a single search request
func (s *HTTPSearcher) searchOnce(ctx context.Context, query string) ([]model.EvidenceItem, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.baseURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	endpoint := fmt.Sprintf("%s/search?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed searchResponse
	limitedReader := io.LimitReader(resp.Body, s.maxBytes)
	if err := json.NewDecoder(limitedReader).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := parsed.Results
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}

	items := make([]model.EvidenceItem, 0, len(results))
	for _, r := range results {
		items = append(items, model.EvidenceItem{
			Title:   r.Title,
			Snippet: r.Content,
			URL:     r.URL,
		})
	}

	return SanitizeItems(items), nil
}

// isRetryableSearchError returns true for errors that indicate transient failures
func isRetryableSearchError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	// Retry on 5xx server errors and 429 rate limits
	if strings.Contains(s, "status: 5") || strings.Contains(s, "status: 429") {
		return true
	}
	// Retry on network errors (timeout, connection refused)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
