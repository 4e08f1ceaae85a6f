package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alethia/internal/pipeline"
)

var commitJSON string

// commitCmd represents the commit command
var commitCmd = &cobra.Command{
	Use:   "commit <claims.txt | claim ...>",
	Short: "Commit a batch of claims under a Merkle root",
	Long: `Commit binds an ordered batch of claim texts to a single Merkle root
and persists the batch for later challenges.

A single argument naming an existing file is read as newline-separated
claim texts. Any other arguments are taken as the claims themselves.

The root plus one inclusion proof per claim is everything a challenger
needs; hold on to them.

Example:
  alethia commit claims.txt
  alethia commit -- "The Eiffel Tower was completed in 1889." "Water boils at 100C at sea level."
  alethia commit claims.txt --json batch.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommit,
}

func init() {
	rootCmd.AddCommand(commitCmd)

	commitCmd.Flags().StringVar(&commitJSON, "json", "", "write the full committed batch as JSON (optional)")
}

func runCommit(cmd *cobra.Command, args []string) error {
	texts, err := collectClaimTexts(args)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return fmt.Errorf("no claims to commit")
	}

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

	batch, err := p.CommitTexts(texts)
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	fmt.Printf("Committed %d claims\n", batch.Commitment.ClaimCount)
	fmt.Printf("Root: %s\n", batch.Commitment.Root)
	fmt.Printf("Timestamp: %s\n", batch.Commitment.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Println()

	for _, claim := range batch.Claims {
		fmt.Printf("[%d] %s\n", claim.MerkleIndex, claim.Text)
		for _, step := range claim.MerkleProof {
			fmt.Printf("    %-5s %s\n", step.Position, step.SiblingHash)
		}
	}

	if commitJSON != "" {
		data, err := json.MarshalIndent(batch, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal batch: %w", err)
		}
		if err := os.WriteFile(commitJSON, data, 0644); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote batch: %s\n", commitJSON)
		}
	}

	return nil
}

// collectClaimTexts reads the batch either from a file or from the
// argument list. Order is preserved and duplicates are kept: the
// commitment covers exactly what was given.
func collectClaimTexts(args []string) ([]string, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
			return readClaimsFile(args[0])
		}
	}
	texts := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	return texts, nil
}

// readClaimsFile reads newline-separated claim texts, skipping blanks
func readClaimsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var texts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		texts = append(texts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return texts, nil
}
