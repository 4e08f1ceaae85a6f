package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/alethia/internal/model"
)

// HashBytes returns the hex-encoded SHA-256 digest of b
func HashBytes(b []byte) model.Hash {
	sum := sha256.Sum256(b)
	return model.Hash(hex.EncodeToString(sum[:]))
}

// HashText hashes the UTF-8 bytes of s
func HashText(s string) model.Hash {
	return HashBytes([]byte(s))
}

// HashCanonical hashes the canonical JSON form of v: the value is marshaled,
// decoded into generic maps and marshaled again, which sorts object keys
// recursively. Identical logical content yields identical bytes regardless
// of field order at the call site.
func HashCanonical(v interface{}) (model.Hash, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("canonical decode: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonical remarshal: %w", err)
	}

	return HashBytes(canonical), nil
}
