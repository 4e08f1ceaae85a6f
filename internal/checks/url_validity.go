package checks

import (
	"context"
	"fmt"

	"github.com/ppiankov/alethia/internal/model"
)

// maxProbedURLs caps how many evidence URLs one verification probes
const maxProbedURLs = 3

// URLValidity is check 0: enough of the leading evidence URLs must answer
// a success-range status within the probe deadline. Critical: dead sources
// mean the evidence set cannot support anything.
type URLValidity struct {
	prober   *Prober
	minRatio float64
}

// NewURLValidity creates the check from configuration
func NewURLValidity(cfg *model.Config) *URLValidity {
	minRatio := cfg.Checks.MinURLRatio
	if minRatio <= 0 {
		minRatio = 0.5
	}

	return &URLValidity{
		prober:   NewProber(cfg),
		minRatio: minRatio,
	}
}

func (c *URLValidity) Name() string { return CheckURLValidity }

func (c *URLValidity) Critical() bool { return true }

// Run probes up to maxProbedURLs evidence URLs concurrently. No evidence is
// a critical failure: there is nothing to support the claim.
func (c *URLValidity) Run(ctx context.Context, _ model.Claim, evidence []model.EvidenceItem) model.CheckResult {
	result := model.CheckResult{
		Name:        c.Name(),
		Critical:    c.Critical(),
		EvidenceRef: snapshotEvidence(evidence),
	}

	if len(evidence) == 0 {
		result.Reason = "no evidence provided"
		return result
	}

	urls := make([]string, 0, maxProbedURLs)
	for _, ev := range evidence {
		urls = append(urls, ev.URL)
		if len(urls) == maxProbedURLs {
			break
		}
	}

	probes := c.prober.Probe(ctx, urls)
	reachable := 0
	for _, p := range probes {
		if p.Reachable {
			reachable++
		}
	}

	ratio := float64(reachable) / float64(len(urls))
	result.Passed = ratio >= c.minRatio
	if result.Passed {
		result.Reason = fmt.Sprintf("%d/%d probed URLs reachable", reachable, len(urls))
	} else {
		result.Reason = fmt.Sprintf("only %d/%d probed URLs reachable", reachable, len(urls))
	}

	return result
}
