package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/alethia/internal/util"
)

const (
	fetchMaxRetries   = 3
	fetchMaxRedirects = 3
)

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher retrieves evidence pages over HTTP with a size cap and a
// redirect cap
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher builds a fetcher honoring the configured proxy and TLS settings
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= fetchMaxRedirects {
					return fmt.Errorf("stopped after %d redirects", fetchMaxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// FetchResult carries the page body plus the URL it finally resolved to
type FetchResult struct {
	HTML     string
	Subject  string
	FinalURL string
}

// FetchWithRetry retrieves HTML content, retrying transient failures
// with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var result *FetchResult
	var err error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		result, err = f.Fetch(ctx, rawURL)
		if err == nil || !isRetryableFetchError(err) {
			return result, err
		}
		if attempt < fetchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fetchSleepFunc(backoff)
		}
	}
	return nil, err
}

// Fetch retrieves one page; any non-2xx status is an error
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// Evidence pages can be arbitrarily large; cap the read
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()

	return &FetchResult{
		HTML:     string(body),
		Subject:  extractSubject(finalURL),
		FinalURL: finalURL,
	}, nil
}

// isRetryableFetchError reports whether the fetch failure is transient.
// Server errors and rate limiting are worth retrying; client errors and
// malformed requests are not.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"status: 5",
		"status: 429",
		"timeout",
		"connection refused",
		"connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var deslugger = strings.NewReplacer("_", " ", "-", " ")

// extractSubject derives a human-readable page subject from its URL: the
// last path segment, extension stripped, de-slugged. The host stands in
// when there is no path.
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	seg := strings.Trim(parsed.Path, "/")
	if seg == "" {
		return parsed.Host
	}
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	if i := strings.LastIndex(seg, "."); i > 0 {
		seg = seg[:i]
	}
	return deslugger.Replace(seg)
}
