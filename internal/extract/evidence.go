package extract

import (
	"net/url"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
	"golang.org/x/net/html"
)

// maxSeedSnippetLen bounds the enclosing-text snippet taken around a link
const maxSeedSnippetLen = 200

// EvidenceExtractor turns outbound links on a page into seed evidence items
type EvidenceExtractor struct{}

// NewEvidenceExtractor creates a new evidence extractor
func NewEvidenceExtractor() *EvidenceExtractor {
	return &EvidenceExtractor{}
}

// FromHTML extracts outbound anchors as evidence seeds. Anchor text becomes
// the title and the enclosing element's text the snippet, so the probe and
// snippet checks have something to work with before any search runs.
func (e *EvidenceExtractor) FromHTML(htmlContent string, sourceURL string) ([]model.EvidenceItem, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	var items []model.EvidenceItem
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if resolved := resolveURL(baseURL, hrefOf(n)); resolved != "" {
				items = append(items, model.EvidenceItem{
					Title:   nodeText(n),
					Snippet: enclosingText(n),
					URL:     resolved,
				})
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return dedupeItems(items), nil
}

// hrefOf returns the trimmed href attribute of an anchor node
func hrefOf(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// inertSchemes are link types that can never serve as evidence
var inertSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// resolveURL makes href absolute against base, returning "" for fragments,
// non-web schemes, and unparseable links
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, scheme := range inertSchemes {
		if strings.HasPrefix(href, scheme) {
			return ""
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	abs := base.ResolveReference(parsed)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// nodeText collects the text content of a node and its descendants
func nodeText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return collapseWhitespace(buf.String())
}

// enclosingText returns the text of the link's parent element, bounded
func enclosingText(n *html.Node) string {
	if n.Parent == nil {
		return ""
	}

	text := nodeText(n.Parent)
	runes := []rune(text)
	if len(runes) > maxSeedSnippetLen {
		text = string(runes[:maxSeedSnippetLen])
	}
	return text
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupeItems keeps the first evidence item seen for each URL
func dedupeItems(items []model.EvidenceItem) []model.EvidenceItem {
	seen := make(map[string]bool, len(items))
	var unique []model.EvidenceItem

	for _, item := range items {
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		unique = append(unique, item)
	}

	return unique
}
