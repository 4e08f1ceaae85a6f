package retrieve

import (
	"context"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/ppiankov/alethia/internal/model"
)

// Searcher produces evidence for a query. Implementations may have
// arbitrary latency, may legitimately return zero items, and are never
// assumed idempotent across calls over time.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.EvidenceItem, error)
}

var (
	sanitizePolicy = bluemonday.StrictPolicy()
	validate       = validator.New()
)

// SanitizeItems scrubs and validates inbound evidence at the collaborator
// boundary. Markup is stripped from text fields and items that fail
// validation are dropped rather than failing the search: dirty input from
// the outside world must never abort a verification.
func SanitizeItems(items []model.EvidenceItem) []model.EvidenceItem {
	out := make([]model.EvidenceItem, 0, len(items))
	for _, item := range items {
		item.Title = sanitizeText(item.Title)
		item.Snippet = sanitizeText(item.Snippet)
		item.URL = strings.TrimSpace(item.URL)

		if err := validate.Struct(item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// sanitizeText strips all markup and collapses HTML entities to plain text
func sanitizeText(s string) string {
	clean := sanitizePolicy.Sanitize(s)
	clean = html.UnescapeString(clean)
	return strings.TrimSpace(clean)
}
