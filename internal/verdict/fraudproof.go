package verdict

import (
	"github.com/ppiankov/alethia/internal/merkle"
	"github.com/ppiankov/alethia/internal/model"
)

// NewFraudProof builds the self-certifying dispute record for a failed
// check. The proof hash commits to the claim text, the check name and the
// evidence snapshot.
func NewFraudProof(claim model.Claim, failed model.CheckResult) *model.FraudProof {
	return &model.FraudProof{
		ClaimHash:        merkle.HashText(claim.Text),
		FailedCheck:      failed.Name,
		Reason:           failed.Reason,
		EvidenceSnapshot: failed.EvidenceRef,
		ProofHash:        RecomputeProofHash(claim.Text, failed.Name, failed.EvidenceRef),
	}
}

// RecomputeProofHash derives the proof hash from the disputed inputs. Any
// third party holding the same triple arrives at the same hash.
func RecomputeProofHash(claimText, failedCheck, evidenceSnapshot string) model.Hash {
	h, err := merkle.HashCanonical(map[string]string{
		"claim":    claimText,
		"check":    failedCheck,
		"evidence": evidenceSnapshot,
	})
	if err != nil {
		// A plain string map cannot fail to marshal
		return merkle.HashText(claimText + failedCheck + evidenceSnapshot)
	}
	return h
}

// Authentic reports whether a fraud proof's hash commitments match the
// claim text it disputes
func Authentic(fp *model.FraudProof, claimText string) bool {
	if fp == nil {
		return false
	}
	return fp.ClaimHash == merkle.HashText(claimText) &&
		fp.ProofHash == RecomputeProofHash(claimText, fp.FailedCheck, fp.EvidenceSnapshot)
}
