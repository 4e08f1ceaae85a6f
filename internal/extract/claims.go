package extract

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/alethia/internal/model"
	"golang.org/x/net/html"
)

// Sentences outside these bounds are either fragments or too compound to
// verify as a single claim.
const (
	minClaimLen = 30
	maxClaimLen = 500
)

// quotedSpan matches straight or curly double-quoted spans
var quotedSpan = regexp.MustCompile(`"[^"]+"|“[^”]+”`)

// yearToken matches plausible four-digit years
var yearToken = regexp.MustCompile(`\b[12]\d{3}\b`)

// ClaimExtractor turns prose into typed claims using pattern heuristics
type ClaimExtractor struct {
	attributionKeywords []string
	definitionKeywords  []string
	temporalKeywords    []string
	factualKeywords     []string
}

// NewClaimExtractor creates a new claim extractor with the built-in keyword sets
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		attributionKeywords: []string{
			"according to", "said", "stated", "reported", "announced",
			"attributed to", "claims that",
		},
		definitionKeywords: []string{
			"is defined as", "refers to", "is known as", "is a term",
			"means that",
		},
		temporalKeywords: []string{
			"century", "founded in", "established in", "began in",
			"ended in", "dates back",
		},
		factualKeywords: []string{
			"originated", "origin", "first", "introduced", "invented",
			"established", "founded", "created", "discovered", "developed",
			"is the", "are the", "was the", "were the", "consists of",
			"located in", "is required", "under the law", "shall", "must",
		},
	}
}

// FromText splits text into sentences and keeps the ones that look like
// verifiable claims, labeling each with the heuristic that matched
func (e *ClaimExtractor) FromText(text string) []model.Claim {
	sentences := splitSentences(text)

	var claims []model.Claim
	for _, sentence := range sentences {
		claimType, ok := e.classify(sentence)
		if !ok {
			continue
		}
		claims = append(claims, model.Claim{
			ID:   uuid.NewString(),
			Text: sentence,
			Type: claimType,
		})
	}

	return dedupeClaims(claims)
}

// FromHTML extracts visible text from an HTML document and delegates to FromText
func (e *ClaimExtractor) FromHTML(htmlContent string) ([]model.Claim, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	return e.FromText(extractVisibleText(doc)), nil
}

// classify picks a claim type for the sentence, most specific marker first
func (e *ClaimExtractor) classify(sentence string) (model.ClaimType, bool) {
	lower := strings.ToLower(sentence)

	switch {
	case quotedSpan.MatchString(sentence):
		return model.ClaimTypeQuote, true
	case containsAny(lower, e.attributionKeywords):
		return model.ClaimTypeAttribution, true
	case containsAny(lower, e.definitionKeywords):
		return model.ClaimTypeDefinition, true
	case yearToken.MatchString(sentence) || containsAny(lower, e.temporalKeywords):
		return model.ClaimTypeTemporal, true
	case containsAny(lower, e.factualKeywords):
		return model.ClaimTypeFactual, true
	}

	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// invisibleTags hold text that browsers never render
var invisibleTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

// extractVisibleText collects the rendered text of a document, space-joined
func extractVisibleText(root *html.Node) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && invisibleTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(root)
	return strings.Join(parts, " ")
}

// sentenceEnd reports whether the byte at i terminates a sentence: one of
// . ! ? followed by whitespace. Dots inside tokens (U.S.A, 3.14) never
// split.
func sentenceEnd(text string, i int) bool {
	switch text[i] {
	case '.', '!', '?':
	default:
		return false
	}
	return i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t')
}

// splitSentences cuts text into sentence-sized spans, dropping fragments
// below minClaimLen and walls of text beyond maxClaimLen
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	keep := func(span string) {
		span = strings.TrimSpace(span)
		if len(span) >= minClaimLen && len(span) <= maxClaimLen {
			sentences = append(sentences, span)
		}
	}

	start := 0
	for i := 0; i < len(text); i++ {
		if sentenceEnd(text, i) {
			keep(text[start : i+1])
			start = i + 1
		}
	}
	// Trailing text without a terminator still counts if sentence-sized
	if start < len(text) {
		keep(text[start:])
	}

	return sentences
}

// dedupeClaims keeps the first occurrence of each claim, compared
// case-insensitively
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool, len(claims))
	var unique []model.Claim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, claim)
	}

	return unique
}
