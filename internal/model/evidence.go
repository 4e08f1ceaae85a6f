package model

// EvidenceItem is one sanitized search result or page link offered in
// support of a claim. Read-only input to the check battery: the checks
// inspect it, never mutate it.
type EvidenceItem struct {
	Title   string `json:"title" validate:"max=512"`    // Result title or anchor text
	Snippet string `json:"snippet" validate:"max=4096"` // Short text excerpt
	URL     string `json:"url" validate:"required,url"` // Full source URL
}
