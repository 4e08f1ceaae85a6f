package model

// Claim represents a single factual assertion under commitment
type Claim struct {
	ID          string      `json:"id"`                     // UUID assigned at extraction
	Text        string      `json:"text"`                   // The claim text itself
	Type        ClaimType   `json:"type,omitempty"`         // Which extraction heuristic matched
	MerkleIndex int         `json:"merkle_index"`           // Leaf position in the committed batch
	MerkleProof []ProofStep `json:"merkle_proof,omitempty"` // Inclusion proof, leaf to root
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeFactual     ClaimType = "factual"     // General factual assertion
	ClaimTypeQuote       ClaimType = "quote"       // Contains a quoted span
	ClaimTypeTemporal    ClaimType = "temporal"    // Carries dates or years
	ClaimTypeAttribution ClaimType = "attribution" // Claims about who did/created something
	ClaimTypeDefinition  ClaimType = "definition"  // Definitional claims
)
