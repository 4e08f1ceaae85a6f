package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/alethia/internal/model"
)

// FileSearcher serves a fixed evidence set from a JSON file, ignoring the
// query. It backs offline verification and the challenge command's
// --evidence flag, where the evidence to check against is already known.
type FileSearcher struct {
	path string
}

// NewFileSearcher reads evidence from the given JSON file on every Search
func NewFileSearcher(path string) *FileSearcher {
	return &FileSearcher{path: path}
}

// Search loads the file and returns its items after boundary hygiene
func (s *FileSearcher) Search(ctx context.Context, query string) ([]model.EvidenceItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}

	var items []model.EvidenceItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse evidence file: %w", err)
	}

	return SanitizeItems(items), nil
}
