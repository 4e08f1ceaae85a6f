package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound search and probe traffic per host, so one
// verification burst cannot hammer a single source. Every host gets the
// same rate; hosts are tracked independently from first sight.
type Limiter struct {
	mu        sync.RWMutex
	perHost   map[string]*rate.Limiter
	perSecond rate.Limit
	burst     int
}

// NewLimiter builds a limiter granting requestsPerSecond with the given
// burst to each host. Bursts below one fall back to five.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		perHost:   make(map[string]*rate.Limiter),
		perSecond: rate.Limit(requestsPerSecond),
		burst:     burst,
	}
}

// Wait blocks until the host behind rawURL has a token free, or returns
// the context error if that happens first
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.limiterFor(host).Wait(ctx)
}

// WaitWithDelay waits for a token and then holds for the extra delay.
// The page fetcher uses this to stack a robots.txt crawl-delay on top of
// the host rate.
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, delay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}

	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// limiterFor returns the limiter for one host, creating it on first use
func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.perHost[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.perHost[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.perSecond, l.burst)
	l.perHost[host] = lim
	return lim
}

// hostOf extracts the host part of a URL, port included
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
