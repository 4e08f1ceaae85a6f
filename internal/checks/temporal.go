package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
)

// datePatterns match, in order: written dates (July 20, 1969), numeric
// dates (7/20/1969), and bare years 1000-2999
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2}, \d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	regexp.MustCompile(`\b[12]\d{3}\b`),
}

// TemporalConsistency is check 4: dates the claim asserts should appear
// verbatim somewhere in the evidence. Non-critical: a missing date is weak
// corroboration, not fabrication.
type TemporalConsistency struct{}

// NewTemporalConsistency creates the check
func NewTemporalConsistency() *TemporalConsistency { return &TemporalConsistency{} }

func (c *TemporalConsistency) Name() string { return CheckTemporalConsistency }

func (c *TemporalConsistency) Critical() bool { return false }

// Run passes when at least half the date tokens in the claim appear in some
// evidence title or snippet. A claim without dates passes vacuously.
func (c *TemporalConsistency) Run(_ context.Context, claim model.Claim, evidence []model.EvidenceItem) model.CheckResult {
	result := model.CheckResult{
		Name:        c.Name(),
		Critical:    c.Critical(),
		EvidenceRef: snapshotEvidence(evidence),
	}

	tokens := extractDateTokens(claim.Text)
	if len(tokens) == 0 {
		result.Passed = true
		result.Reason = "no date tokens to check"
		return result
	}

	supported := 0
	for _, token := range tokens {
		if evidenceContains(evidence, token) {
			supported++
		}
	}

	result.Passed = supported*2 >= len(tokens)
	if result.Passed {
		result.Reason = fmt.Sprintf("%d/%d date tokens found in evidence", supported, len(tokens))
	} else {
		result.Reason = fmt.Sprintf("only %d/%d date tokens found in evidence", supported, len(tokens))
	}

	return result
}

// extractDateTokens collects unique date-like tokens in order of first
// appearance. A year inside a fuller date also counts on its own.
func extractDateTokens(text string) []string {
	seen := make(map[string]struct{})
	var tokens []string

	for _, re := range datePatterns {
		for _, match := range re.FindAllString(text, -1) {
			key := strings.ToLower(match)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tokens = append(tokens, match)
		}
	}

	return tokens
}
