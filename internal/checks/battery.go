package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
)

// Check names, stable across runs. Fraud proofs reference these.
const (
	CheckURLValidity         = "url_validity"
	CheckQuoteExactMatch     = "quote_exact_match"
	CheckEntityConsistency   = "entity_consistency"
	CheckSourceCredibility   = "source_credibility"
	CheckTemporalConsistency = "temporal_consistency"
	CheckMerkleMembership    = "merkle_membership"
)

// Check is one deterministic verification rule. Run must be a pure function
// of (claim text, evidence set) apart from the URL probes, and must always
// return a completed result rather than an error.
type Check interface {
	Name() string
	Critical() bool
	Run(ctx context.Context, claim model.Claim, evidence []model.EvidenceItem) model.CheckResult
}

// Battery holds the five checks in their fixed order. The aggregator's
// tie-breaks depend on this order, so it never varies.
type Battery struct {
	checks []Check
}

// NewBattery assembles the standard battery from configuration
func NewBattery(cfg *model.Config) (*Battery, error) {
	credibility, err := NewSourceCredibility(cfg.Checks.CredibilityFile)
	if err != nil {
		return nil, fmt.Errorf("build battery: %w", err)
	}

	return &Battery{
		checks: []Check{
			NewURLValidity(cfg),
			NewQuoteExactMatch(),
			NewEntityConsistency(),
			credibility,
			NewTemporalConsistency(),
		},
	}, nil
}

// Checks returns the battery members in order
func (b *Battery) Checks() []Check {
	return b.checks
}

// RunAll executes every check in battery order and returns their results
// in the same order
func (b *Battery) RunAll(ctx context.Context, claim model.Claim, evidence []model.EvidenceItem) []model.CheckResult {
	results := make([]model.CheckResult, 0, len(b.checks))
	for _, c := range b.checks {
		results = append(results, c.Run(ctx, claim, evidence))
	}
	return results
}

// snapshotEvidence flattens the evidence set into a deterministic string
// for check results and fraud-proof snapshots
func snapshotEvidence(evidence []model.EvidenceItem) string {
	if len(evidence) == 0 {
		return "(no evidence)"
	}

	parts := make([]string, len(evidence))
	for i, ev := range evidence {
		parts[i] = fmt.Sprintf("%s | %s | %s", ev.Title, ev.Snippet, ev.URL)
	}
	return strings.Join(parts, "\n")
}

// evidenceContains reports whether needle appears case-insensitively in the
// title or snippet of any evidence item
func evidenceContains(evidence []model.EvidenceItem, needle string) bool {
	lower := strings.ToLower(needle)
	for _, ev := range evidence {
		if strings.Contains(strings.ToLower(ev.Title), lower) ||
			strings.Contains(strings.ToLower(ev.Snippet), lower) {
			return true
		}
	}
	return false
}
