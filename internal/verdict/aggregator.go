package verdict

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/alethia/internal/merkle"
	"github.com/ppiankov/alethia/internal/model"
)

// fraudConfidence is assigned to every fraud verdict: certainty comes from
// the attached proof, not from the score
const fraudConfidence = 10

// Pass-ratio thresholds, both inclusive
const (
	verifiedThreshold  = 0.6
	uncertainThreshold = 0.3
)

// Aggregate folds battery results into a verdict. The policy runs in fixed
// order: any critical failure proves fraud from the first such failure;
// otherwise the pass ratio verifies, stays uncertain, or proves fraud from
// the check at position 0 regardless of that check's criticality. The last
// branch deliberately picks by position, not relevance.
func Aggregate(claim model.Claim, results []model.CheckResult) model.VerificationResult {
	out := model.VerificationResult{
		ClaimHash: merkle.HashText(claim.Text),
		Checks:    results,
		Reasoning: reasoning(results),
	}

	if len(results) == 0 {
		out.Verdict = model.VerdictUncertain
		return out
	}

	for _, r := range results {
		if r.Critical && !r.Passed {
			out.Verdict = model.VerdictFraudProven
			out.Confidence = fraudConfidence
			out.FraudProof = NewFraudProof(claim, r)
			return out
		}
	}

	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	ratio := float64(passed) / float64(len(results))

	switch {
	case ratio >= verifiedThreshold:
		out.Verdict = model.VerdictVerified
		out.Confidence = int(math.Round(ratio * 100))
	case ratio >= uncertainThreshold:
		out.Verdict = model.VerdictUncertain
		out.Confidence = int(math.Round(ratio * 100))
	default:
		out.Verdict = model.VerdictFraudProven
		out.Confidence = fraudConfidence
		out.FraudProof = NewFraudProof(claim, results[0])
	}

	return out
}

// reasoning renders the deterministic digest of the check outcomes:
// identical results always produce the identical string
func reasoning(results []model.CheckResult) string {
	if len(results) == 0 {
		return "no checks ran"
	}

	passed := 0
	parts := make([]string, len(results))
	for i, r := range results {
		if r.Passed {
			passed++
			parts[i] = fmt.Sprintf("%s ok", r.Name)
		} else {
			parts[i] = fmt.Sprintf("%s FAILED", r.Name)
		}
	}

	return fmt.Sprintf("%d/%d checks passed: %s", passed, len(results), strings.Join(parts, ", "))
}
