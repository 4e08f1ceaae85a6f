package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker gates page fetches on the target site's robots.txt.
// Rules are cached per host for the checker's lifetime, which matches
// one pipeline run.
type RobotsChecker struct {
	mu        sync.RWMutex
	byHost    map[string]*robotstxt.RobotsData
	client    *http.Client
	userAgent string
}

// NewRobotsChecker creates a checker that identifies as userAgent and
// spends at most timeout on each robots.txt fetch
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		byHost:    make(map[string]*robotstxt.RobotsData),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// CanFetch reports whether rawURL may be fetched and the crawl delay the
// site asks for. An unreachable or unparseable robots.txt allows the
// fetch: sites that publish no rules do not forbid everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	rules, err := r.rulesFor(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	allowed := rules.TestAgent(parsed.Path, r.userAgent)

	var delay time.Duration
	if group := rules.FindGroup(r.userAgent); group != nil {
		delay = group.CrawlDelay
	}

	return allowed, delay, nil
}

// rulesFor returns the cached rules for the URL's host, fetching
// robots.txt on first sight. A 4xx response parses to allow-all, a 5xx
// to disallow-all; fetch errors are not cached so the host is retried.
func (r *RobotsChecker) rulesFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	rules, ok := r.byHost[target.Host]
	r.mu.RUnlock()
	if ok {
		return rules, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rules, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.byHost[target.Host] = rules
	r.mu.Unlock()

	return rules, nil
}
