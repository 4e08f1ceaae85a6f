package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
)

// entityPattern matches runs of two or more capitalized words
var entityPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)+\b`)

// entityStopwords are leading words that usually signal sentence structure
// rather than a named entity
var entityStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "in": {}, "on": {}, "at": {},
	"of": {}, "for": {}, "and": {}, "but": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "its": {}, "from": {}, "to": {},
	"by": {}, "with": {}, "after": {}, "before": {}, "during": {},
	"since": {}, "until": {}, "according": {},
}

// EntityConsistency is check 2: named entities in the claim should recur
// across the evidence set. Non-critical: weak corroboration alone is not
// proof of fraud.
type EntityConsistency struct{}

// NewEntityConsistency creates the check
func NewEntityConsistency() *EntityConsistency { return &EntityConsistency{} }

func (c *EntityConsistency) Name() string { return CheckEntityConsistency }

func (c *EntityConsistency) Critical() bool { return false }

// Run passes when at least half the extracted entities appear in two or
// more distinct evidence items. No entities means a vacuous pass.
func (c *EntityConsistency) Run(_ context.Context, claim model.Claim, evidence []model.EvidenceItem) model.CheckResult {
	result := model.CheckResult{
		Name:        c.Name(),
		Critical:    c.Critical(),
		EvidenceRef: snapshotEvidence(evidence),
	}

	entities := extractEntities(claim.Text)
	if len(entities) == 0 {
		result.Passed = true
		result.Reason = "no multi-word entities to check"
		return result
	}

	supported := 0
	for _, entity := range entities {
		if countEvidenceMatches(evidence, entity) >= 2 {
			supported++
		}
	}

	result.Passed = supported*2 >= len(entities)
	if result.Passed {
		result.Reason = fmt.Sprintf("%d/%d entities corroborated by multiple sources", supported, len(entities))
	} else {
		result.Reason = fmt.Sprintf("only %d/%d entities corroborated by multiple sources", supported, len(entities))
	}

	return result
}

// extractEntities collects unique capitalized multi-word sequences,
// dropping leading stopwords and anything reduced below two words
func extractEntities(text string) []string {
	seen := make(map[string]struct{})
	var entities []string

	for _, match := range entityPattern.FindAllString(text, -1) {
		words := strings.Fields(match)
		for len(words) > 0 {
			if _, stop := entityStopwords[strings.ToLower(words[0])]; !stop {
				break
			}
			words = words[1:]
		}
		if len(words) < 2 {
			continue
		}

		entity := strings.Join(words, " ")
		key := strings.ToLower(entity)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		entities = append(entities, entity)
	}

	return entities
}

// countEvidenceMatches counts distinct evidence items whose title or
// snippet mentions needle case-insensitively
func countEvidenceMatches(evidence []model.EvidenceItem, needle string) int {
	lower := strings.ToLower(needle)
	count := 0
	for _, ev := range evidence {
		if strings.Contains(strings.ToLower(ev.Title), lower) ||
			strings.Contains(strings.ToLower(ev.Snippet), lower) {
			count++
		}
	}
	return count
}
