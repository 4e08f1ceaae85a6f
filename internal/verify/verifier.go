package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/alethia/internal/checks"
	"github.com/ppiankov/alethia/internal/merkle"
	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/verdict"
)

// membershipReason is the dedicated verdict reason for claims that fail the
// commitment membership check
const membershipReason = "claim is not part of the original commitment"

// membershipConfidence mirrors the fraud confidence of the aggregator
const membershipConfidence = 10

// Verifier runs the deterministic battery and the aggregation policy for
// one claim at a time. It holds no state across calls.
type Verifier struct {
	battery *checks.Battery
}

// NewVerifier builds a verifier from configuration
func NewVerifier(cfg *model.Config) (*Verifier, error) {
	battery, err := checks.NewBattery(cfg)
	if err != nil {
		return nil, fmt.Errorf("new verifier: %w", err)
	}
	return &Verifier{battery: battery}, nil
}

// RunChecks verifies one claim's content against the evidence set. The
// result is always complete: probe failures and empty evidence resolve
// inside the battery, never as errors.
func (v *Verifier) RunChecks(ctx context.Context, claim model.Claim, evidence []model.EvidenceItem) model.VerificationResult {
	results := v.battery.RunAll(ctx, claim, evidence)
	return verdict.Aggregate(claim, results)
}

// RunChecksAgainstRoot verifies commitment membership before content. A
// claim that is not part of the committed batch is fraud no matter what the
// battery would say, so the battery is skipped and its outcome discarded.
func (v *Verifier) RunChecksAgainstRoot(ctx context.Context, claim model.Claim, evidence []model.EvidenceItem, root model.Hash) model.VerificationResult {
	if !merkle.VerifyMembership(claim.Text, claim.MerkleProof, root) {
		return membershipFraud(claim, root)
	}
	return v.RunChecks(ctx, claim, evidence)
}

// membershipFraud builds the forced verdict for a failed membership check
func membershipFraud(claim model.Claim, root model.Hash) model.VerificationResult {
	failed := model.CheckResult{
		Name:        checks.CheckMerkleMembership,
		Passed:      false,
		Critical:    true,
		Reason:      membershipReason,
		EvidenceRef: membershipSnapshot(root, claim.MerkleProof),
	}

	return model.VerificationResult{
		ClaimHash:  merkle.HashText(claim.Text),
		Checks:     []model.CheckResult{failed},
		Verdict:    model.VerdictFraudProven,
		Confidence: membershipConfidence,
		Reasoning:  membershipReason,
		FraudProof: verdict.NewFraudProof(claim, failed),
	}
}

// membershipSnapshot renders the disputed root and proof path so a third
// party can replay the failed membership check from the record alone
func membershipSnapshot(root model.Hash, proof []model.ProofStep) string {
	parts := make([]string, 0, len(proof)+1)
	parts = append(parts, "root: "+string(root))
	for _, step := range proof {
		parts = append(parts, fmt.Sprintf("%s %s", step.Position, step.SiblingHash))
	}
	return strings.Join(parts, "\n")
}
