package checks

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/util"
	"github.com/ppiankov/alethia/internal/worker"
)

// ProbeResult is the outcome of one URL reachability probe
type ProbeResult struct {
	URL        string
	Reachable  bool
	StatusCode int
	Error      string
}

// Prober checks URL reachability concurrently. Probes are best-effort: a
// timeout, transport error or exhausted rate budget marks the URL
// unreachable and never escalates past the probe itself.
type Prober struct {
	httpClient   *http.Client
	limiter      *worker.Limiter
	userAgent    string
	maxWorkers   int
	probeTimeout time.Duration
}

// NewProber creates a prober from the HTTP, rate-limit and check settings
func NewProber(cfg *model.Config) *Prober {
	maxWorkers := cfg.Checks.ProbeWorkers
	if maxWorkers <= 0 {
		maxWorkers = 3
	}

	probeTimeout := cfg.Checks.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	rps := cfg.RateLimiting.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	proxyFunc := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	return &Prober{
		httpClient: &http.Client{
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
		limiter:      worker.NewLimiter(rps, cfg.RateLimiting.Burst),
		userAgent:    cfg.HTTP.UserAgent,
		maxWorkers:   maxWorkers,
		probeTimeout: probeTimeout,
	}
}

// Probe checks each URL concurrently behind a semaphore. Results are
// index-aligned with the input slice.
func (p *Prober) Probe(ctx context.Context, urls []string) []ProbeResult {
	if len(urls) == 0 {
		return []ProbeResult{}
	}

	results := make([]ProbeResult, len(urls))
	var wg sync.WaitGroup

	// Semaphore bounds concurrent probes
	semaphore := make(chan struct{}, p.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = ProbeResult{URL: url, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = p.probeSingle(ctx, url)
		}(i, u)
	}

	wg.Wait()

	return results
}

// probeSingle issues one HEAD request with a per-probe deadline. The
// per-host rate wait counts against that deadline.
func (p *Prober) probeSingle(ctx context.Context, url string) ProbeResult {
	result := ProbeResult{URL: url}

	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	if err := p.limiter.Wait(probeCtx, url); err != nil {
		result.Error = fmt.Sprintf("rate limit: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		return result
	}

	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 400

	return result
}
