package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alethia/internal/pipeline"
)

var (
	userAgent   string
	maxBytes    int64
	insecureTLS bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Commit and verify the claims a web page makes",
	Long: `Check fetches a single web page (honoring robots.txt) and holds its
content to account:
- Extract factual claims from the page text
- Commit the claims under a Merkle root
- Collect the page's own outbound links as seed evidence
- Run the deterministic check battery on every claim

Example:
  alethia check https://en.wikipedia.org/wiki/Eiffel_Tower
  alethia check https://example.com/post --json report.json --md report.md
  alethia check https://internal.example --insecure`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	// HTTP flags
	checkCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall check timeout (increase for pages with many links)")
	checkCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	checkCmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read (default from config)")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the retrieval cache")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	checkCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.InsecureTLS = insecureTLS
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if maxBytes > 0 {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", url)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Fetching HTML...\n")
	}

	report, err := p.CheckPage(ctx, url)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", len(report.Claims))
		if report.Commitment != nil {
			fmt.Fprintf(os.Stderr, "✓ Committed batch: %s\n", report.Commitment.Root)
		}
		fmt.Fprintf(os.Stderr, "✓ Verified: %d, uncertain: %d, fraud proven: %d\n",
			report.Summary.Verified, report.Summary.Uncertain, report.Summary.FraudProven)
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
