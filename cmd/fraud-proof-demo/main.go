// Demo program walking the fraud-proof lifecycle end to end, offline:
// commit a batch, prove membership, tamper with a claim, run the check
// battery, and reproduce a fraud proof hash from the record alone.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/alethia/internal/merkle"
	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/verdict"
	"github.com/ppiankov/alethia/internal/verify"
)

func main() {
	fmt.Println("=== Alethia Fraud Proof Demo ===")
	fmt.Println()

	// Stage 1: commit a fixed batch
	texts := []string{
		"The Eiffel Tower was completed in 1889.",
		"The Statue of Liberty was dedicated in 1886.",
		"The Brooklyn Bridge opened in 1883.",
		"The Golden Gate Bridge opened in 1937.",
	}

	commitment, proofs, err := merkle.Commit(texts)
	if err != nil {
		log.Fatalf("commit: %v", err)
	}

	fmt.Printf("Committed %d claims\n", commitment.ClaimCount)
	fmt.Printf("Root: %s\n", commitment.Root)
	fmt.Println()

	for i, text := range texts {
		fmt.Printf("[%d] %s\n", i, text)
		for _, step := range proofs[i] {
			fmt.Printf("    %-5s %s\n", step.Position, step.SiblingHash)
		}
	}
	fmt.Println()

	// Stage 2: every claim proves its membership
	fmt.Println("--- Membership ---")
	for i, text := range texts {
		if merkle.VerifyMembership(text, proofs[i], commitment.Root) {
			fmt.Printf("✓ claim %d verifies against the root\n", i)
		} else {
			fmt.Printf("✗ claim %d does not verify: the commitment is broken\n", i)
		}
	}
	fmt.Println()

	// Stage 3: a reworded claim cannot reuse its proof
	fmt.Println("--- Tampering ---")
	tampered := strings.Replace(texts[0], "1889", "1999", 1)
	fmt.Printf("Original: %s\n", texts[0])
	fmt.Printf("Tampered: %s\n", tampered)
	if merkle.VerifyMembership(tampered, proofs[0], commitment.Root) {
		fmt.Println("✗ tampered claim verified: the commitment is broken")
	} else {
		fmt.Println("✓ tampered claim rejected: membership fails")
	}
	fmt.Println()

	// Stage 4: the battery on the honest claim, with canned evidence.
	// A local listener answers the URL probes so the demo never leaves
	// the machine.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Close() }()
	base := "http://" + ln.Addr().String()

	evidence := []model.EvidenceItem{
		{Title: "Eiffel Tower - History", Snippet: "The Eiffel Tower was completed in 1889 for the World Fair in Paris.", URL: base + "/eiffel/history"},
		{Title: "Eiffel Tower", Snippet: "Construction of the Eiffel Tower finished in 1889.", URL: base + "/eiffel"},
		{Title: "Statue of Liberty", Snippet: "The Statue of Liberty was dedicated in 1886.", URL: base + "/liberty"},
	}

	cfg := model.DefaultConfig()
	cfg.Checks.ProbeTimeout = 2 * time.Second
	verifier, err := verify.NewVerifier(cfg)
	if err != nil {
		log.Fatalf("new verifier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	claim := model.Claim{
		ID:          "demo-claim-0",
		Text:        texts[0],
		MerkleIndex: 0,
		MerkleProof: proofs[0],
	}

	fmt.Println("--- Check battery (honest claim) ---")
	result := verifier.RunChecksAgainstRoot(ctx, claim, evidence, commitment.Root)
	for _, check := range result.Checks {
		mark := "✓"
		if !check.Passed {
			mark = "✗"
		}
		fmt.Printf("%s %-22s %s\n", mark, check.Name, check.Reason)
	}
	fmt.Printf("Verdict: %s (confidence %d/100)\n", result.Verdict, result.Confidence)
	fmt.Println("(local addresses never reach the credibility threshold; that single")
	fmt.Println(" failure is why the confidence is not 100)")
	fmt.Println()

	// Stage 5: a dispute against the tampered text yields a fraud proof
	fmt.Println("--- Fraud proof (tampered claim) ---")
	badClaim := model.Claim{
		ID:          "demo-claim-tampered",
		Text:        tampered,
		MerkleIndex: 0,
		MerkleProof: proofs[0],
	}
	badResult := verifier.RunChecksAgainstRoot(ctx, badClaim, evidence, commitment.Root)
	fmt.Printf("Verdict: %s (confidence %d/100)\n", badResult.Verdict, badResult.Confidence)
	fmt.Printf("Reasoning: %s\n", badResult.Reasoning)

	proof := badResult.FraudProof
	if proof == nil {
		log.Fatal("expected a fraud proof for the tampered claim")
	}
	fmt.Println()
	fmt.Printf("Failed check: %s\n", proof.FailedCheck)
	fmt.Printf("Reason: %s\n", proof.Reason)
	fmt.Printf("Evidence snapshot:\n%s\n", indent(proof.EvidenceSnapshot))
	fmt.Println()

	// Anyone holding the record triple recomputes the same hash
	recomputed := verdict.RecomputeProofHash(badClaim.Text, proof.FailedCheck, proof.EvidenceSnapshot)
	fmt.Printf("Proof hash (recorded):   %s\n", proof.ProofHash)
	fmt.Printf("Proof hash (recomputed): %s\n", recomputed)
	if recomputed == proof.ProofHash {
		fmt.Println("✓ fraud proof is reproducible from the record alone")
	} else {
		fmt.Println("✗ proof hashes diverge: the record is not self-certifying")
	}

	fmt.Println()
	fmt.Println("=== Demo Complete ===")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
