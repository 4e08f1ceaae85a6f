package checks

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	// unknownDomainScore is assigned to any domain the table does not cover
	unknownDomainScore = 50

	// credibilityThreshold is the average score required to pass
	credibilityThreshold = 60
)

// defaultDomainScores is the built-in credibility table, 0..100 per domain.
// Deployments may replace or extend entries via checks.credibility_file.
var defaultDomainScores = map[string]int{
	// Official and academic sources
	"gov.uk":      90,
	"europa.eu":   90,
	"un.org":      90,
	"who.int":     90,
	"nih.gov":     90,
	"cdc.gov":     90,
	"nasa.gov":    90,
	"nature.com":  85,
	"science.org": 85,
	"doi.org":     85,
	"jstor.org":   85,
	"arxiv.org":   80,

	// Encyclopedias and major publishers
	"britannica.com":  80,
	"reuters.com":     80,
	"apnews.com":      80,
	"bbc.com":         75,
	"bbc.co.uk":       75,
	"economist.com":   75,
	"nytimes.com":     72,
	"theguardian.com": 72,
	"wikipedia.org":   70,

	// User-generated and promotional
	"medium.com":      35,
	"reddit.com":      30,
	"quora.com":       30,
	"tripadvisor.com": 30,
	"blogspot.com":    25,
	"wordpress.com":   25,
	"twitter.com":     25,
	"x.com":           25,
	"facebook.com":    20,
	"pinterest.com":   20,
}

// tldScores rate whole top-level zones when no domain entry matches
var tldScores = map[string]int{
	".gov":    90,
	".mil":    85,
	".edu":    80,
	".ac.uk":  80,
	".gov.uk": 90,
	".int":    85,
}

// SourceCredibility is check 3: the evidence set's average per-domain score
// must reach the threshold. Non-critical: weak sourcing is suspicious, not
// proof.
type SourceCredibility struct {
	scores map[string]int
}

// NewSourceCredibility creates the check, merging per-domain overrides from
// path when it is non-empty. Format: YAML map of domain to score 0..100.
func NewSourceCredibility(path string) (*SourceCredibility, error) {
	scores := defaultDomainScores
	if path != "" {
		merged, err := loadDomainScores(path)
		if err != nil {
			return nil, fmt.Errorf("load credibility table: %w", err)
		}
		scores = merged
	}

	return &SourceCredibility{scores: scores}, nil
}

func (c *SourceCredibility) Name() string { return CheckSourceCredibility }

func (c *SourceCredibility) Critical() bool { return false }

// Run averages the per-domain scores across all evidence items. An empty
// evidence set passes vacuously: there are no sources to rate.
func (c *SourceCredibility) Run(_ context.Context, _ model.Claim, evidence []model.EvidenceItem) model.CheckResult {
	result := model.CheckResult{
		Name:        c.Name(),
		Critical:    c.Critical(),
		EvidenceRef: snapshotEvidence(evidence),
	}

	if len(evidence) == 0 {
		result.Passed = true
		result.Reason = "no sources to rate"
		return result
	}

	total := 0
	for _, ev := range evidence {
		total += c.scoreURL(ev.URL)
	}
	average := int(math.Round(float64(total) / float64(len(evidence))))

	result.Passed = average >= credibilityThreshold
	if result.Passed {
		result.Reason = fmt.Sprintf("average source credibility %d/100 across %d sources", average, len(evidence))
	} else {
		result.Reason = fmt.Sprintf("average source credibility %d/100 below threshold %d", average, credibilityThreshold)
	}

	return result
}

// scoreURL rates one URL by domain: exact host first, then parent domains,
// then top-level zones, else the unknown-domain score
func (c *SourceCredibility) scoreURL(rawURL string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return unknownDomainScore
	}

	host := strings.ToLower(parsed.Host)
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")

	// Walk up the domain: en.wikipedia.org matches wikipedia.org
	for domain := host; domain != ""; {
		if score, ok := c.scores[domain]; ok {
			return score
		}
		dot := strings.Index(domain, ".")
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}

	for suffix, score := range tldScores {
		if strings.HasSuffix(host, suffix) {
			return score
		}
	}

	return unknownDomainScore
}

// loadDomainScores merges a YAML override file into the built-in table
func loadDomainScores(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var overrides map[string]int
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	merged := make(map[string]int, len(defaultDomainScores)+len(overrides))
	for domain, score := range defaultDomainScores {
		merged[domain] = score
	}
	for domain, score := range overrides {
		merged[strings.ToLower(domain)] = score
	}

	return merged, nil
}
