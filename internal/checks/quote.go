package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
)

var quotedSpanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`“([^”]+)”`),
}

// QuoteExactMatch is check 1: every quoted span in the claim must appear
// case-insensitively in at least one evidence snippet. Critical: a fabricated
// quote is direct evidence of fraud.
type QuoteExactMatch struct{}

// NewQuoteExactMatch creates the check
func NewQuoteExactMatch() *QuoteExactMatch { return &QuoteExactMatch{} }

func (c *QuoteExactMatch) Name() string { return CheckQuoteExactMatch }

func (c *QuoteExactMatch) Critical() bool { return true }

// Run passes vacuously when the claim quotes nothing, evidence or not
func (c *QuoteExactMatch) Run(_ context.Context, claim model.Claim, evidence []model.EvidenceItem) model.CheckResult {
	result := model.CheckResult{
		Name:        c.Name(),
		Critical:    c.Critical(),
		EvidenceRef: snapshotEvidence(evidence),
	}

	quotes := extractQuotedSpans(claim.Text)
	if len(quotes) == 0 {
		result.Passed = true
		result.Reason = "no quoted spans to match"
		return result
	}

	for _, q := range quotes {
		if !snippetContains(evidence, q) {
			result.Reason = fmt.Sprintf("quoted span not found in any evidence snippet: %q", q)
			return result
		}
	}

	result.Passed = true
	result.Reason = fmt.Sprintf("all %d quoted spans found in evidence", len(quotes))
	return result
}

// extractQuotedSpans collects the unique quoted substrings of text in
// order of first appearance
func extractQuotedSpans(text string) []string {
	seen := make(map[string]struct{})
	var spans []string

	for _, re := range quotedSpanPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			span := strings.TrimSpace(m[1])
			if span == "" {
				continue
			}
			key := strings.ToLower(span)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			spans = append(spans, span)
		}
	}

	return spans
}

// snippetContains reports whether needle appears case-insensitively in any
// evidence snippet
func snippetContains(evidence []model.EvidenceItem, needle string) bool {
	lower := strings.ToLower(needle)
	for _, ev := range evidence {
		if strings.Contains(strings.ToLower(ev.Snippet), lower) {
			return true
		}
	}
	return false
}
