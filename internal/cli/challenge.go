package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/pipeline"
	"github.com/ppiankov/alethia/internal/retrieve"
)

var (
	evidenceFile     string
	searchEvidence   bool
	challengeTimeout time.Duration
)

// challengeCmd represents the challenge command
var challengeCmd = &cobra.Command{
	Use:   "challenge <root> <index>",
	Short: "Dispute one claim of a committed batch",
	Long: `Challenge loads the committed batch for the given root, checks that
the claim at the given index is really part of the commitment, then
replays the full check battery against evidence.

Evidence comes from --evidence (a JSON array of {title, snippet, url})
or, with --search, from the configured search endpoint. Without either,
the battery runs on no evidence and the critical URL check fails: an
unsupported claim loses its dispute.

Exits 1 when the dispute is upheld (FRAUD_PROVEN).

Example:
  alethia challenge 4a5b... 2 --evidence evidence.json
  alethia challenge 4a5b... 0 --search`,
	Args: cobra.ExactArgs(2),
	RunE: runChallenge,
}

func init() {
	rootCmd.AddCommand(challengeCmd)

	challengeCmd.Flags().StringVar(&evidenceFile, "evidence", "", "JSON file with evidence items to check against")
	challengeCmd.Flags().BoolVar(&searchEvidence, "search", false, "retrieve evidence from the configured search endpoint")
	challengeCmd.Flags().DurationVar(&challengeTimeout, "timeout", 2*time.Minute, "overall challenge timeout")
}

func runChallenge(cmd *cobra.Command, args []string) error {
	root := model.Hash(args[0])
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("index must be an integer: %q", args[1])
	}

	ctx, cancel := context.WithTimeout(context.Background(), challengeTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Output.Verbose = verbose

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	// nil evidence makes the pipeline search; an empty set suppresses it
	var evidence []model.EvidenceItem
	switch {
	case evidenceFile != "":
		evidence, err = retrieve.NewFileSearcher(evidenceFile).Search(ctx, "")
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Loaded %d evidence items from %s\n", len(evidence), evidenceFile)
		}
	case searchEvidence:
		evidence = nil
	default:
		evidence = []model.EvidenceItem{}
	}

	fmt.Printf("Challenging claim %d of batch %s\n\n", index, root)

	result, err := p.Challenge(ctx, root, index, evidence)
	if err != nil {
		return fmt.Errorf("challenge failed: %w", err)
	}

	printResult(result)

	if result.Verdict == model.VerdictFraudProven {
		return fmt.Errorf("dispute upheld: claim %d of %s is fraudulent", index, root)
	}

	return nil
}

// printResult renders one verification result to stdout
func printResult(result *model.VerificationResult) {
	fmt.Printf("Claim hash: %s\n", result.ClaimHash)
	fmt.Printf("Verdict: %s (confidence %d/100)\n", result.Verdict, result.Confidence)
	fmt.Printf("Reasoning: %s\n", result.Reasoning)
	fmt.Println()

	fmt.Println("Checks:")
	for _, check := range result.Checks {
		mark := "✓"
		if !check.Passed {
			mark = "✗"
		}
		fmt.Printf("  %s %-22s %s\n", mark, check.Name, check.Reason)
	}

	if result.FraudProof != nil {
		fmt.Println()
		fmt.Println("Fraud proof:")
		fmt.Printf("  Failed check: %s\n", result.FraudProof.FailedCheck)
		fmt.Printf("  Reason: %s\n", result.FraudProof.Reason)
		fmt.Printf("  Evidence snapshot: %s\n", result.FraudProof.EvidenceSnapshot)
		fmt.Printf("  Proof hash: %s\n", result.FraudProof.ProofHash)
	}
}
