package model

// Verdict is the outcome of verifying one claim
type Verdict string

const (
	VerdictVerified    Verdict = "VERIFIED"     // Enough checks passed
	VerdictUncertain   Verdict = "UNCERTAIN"    // Mixed results, no proof either way
	VerdictFraudProven Verdict = "FRAUD_PROVEN" // A failure sufficient to uphold a dispute
)

// CheckResult is the outcome of one deterministic check. Produced fresh on
// every verification call, never cached.
type CheckResult struct {
	Name        string `json:"name"`                   // Check identifier, stable across runs
	Passed      bool   `json:"passed"`                 // Whether the pass condition held
	Critical    bool   `json:"critical"`               // Lone failure forces FRAUD_PROVEN
	Reason      string `json:"reason"`                 // Deterministic pass/fail explanation
	EvidenceRef string `json:"evidence_ref,omitempty"` // Snapshot of the evidence the check saw
}

// VerificationResult is the complete outcome for one challenged claim
type VerificationResult struct {
	ClaimHash  Hash          `json:"claim_hash"`
	Checks     []CheckResult `json:"checks"` // In battery order
	Verdict    Verdict       `json:"verdict"`
	Confidence int           `json:"confidence"`            // 0-100
	Reasoning  string        `json:"reasoning"`             // Deterministic digest of the check outcomes
	FraudProof *FraudProof   `json:"fraud_proof,omitempty"` // Present iff verdict is FRAUD_PROVEN
}

// FraudProof is a self-certifying dispute record. Any third party holding
// the same claim text, check name and evidence snapshot recomputes the same
// ProofHash.
type FraudProof struct {
	ClaimHash        Hash   `json:"claim_hash"`
	FailedCheck      string `json:"failed_check"`
	Reason           string `json:"reason"`
	EvidenceSnapshot string `json:"evidence_snapshot"`
	ProofHash        Hash   `json:"proof_hash"`
}
