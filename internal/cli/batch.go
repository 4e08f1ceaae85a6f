package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alethia/internal/pipeline"
	"github.com/ppiankov/alethia/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	httpProxy    string
	httpsProxy   string
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Ask and verify multiple questions from a file in parallel",
	Long: `Batch processes multiple questions concurrently:
- Read questions from input file (one per line, # comments skipped)
- Ask each question and verify the answer's claims in parallel
- Each answer gets its own commitment and per-claim verdicts
- Write one JSON and one Markdown report per question

Example:
  alethia batch questions.txt
  alethia batch questions.txt --concurrency 10 --output-dir ./reports
  alethia batch questions.txt --concurrency 5 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent questions")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./alethia-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	batchCmd.Flags().DurationVar(&timeout, "ask-timeout", 2*time.Minute, "timeout for individual questions")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the retrieval cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama; default from config or openai)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default from config or gpt-4o-mini)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter

	if err := resolveLLMEnv(cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Input file: %s\n", file)
	fmt.Fprintf(os.Stderr, "Concurrency: %d questions, %v total budget\n", concurrency, batchTimeout)
	fmt.Fprintf(os.Stderr, "Provider: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "Reports: %s\n", outputDir)
	fmt.Fprintln(os.Stderr)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	processor := worker.NewBatchProcessor(p, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	var answered, failed, fraud int
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Question, result.Error)
			continue
		}
		answered++
		fraud += result.Report.Summary.FraudProven

		slug := sanitizeFilename(result.Question)
		if err := renderer.RenderJSON(result.Report, filepath.Join(outputDir, slug+".json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: write JSON: %v\n", result.Question, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, filepath.Join(outputDir, slug+".md")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: write Markdown: %v\n", result.Question, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ %s (verified %d/%d)\n",
			result.Question, result.Report.Summary.Verified, len(result.Report.Claims))
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Questions: %d\n", len(results))
	fmt.Fprintf(os.Stderr, "Answered: %d\n", answered)
	fmt.Fprintf(os.Stderr, "Failed: %d\n", failed)
	fmt.Fprintf(os.Stderr, "Fraud proven: %d claims\n", fraud)
	fmt.Fprintf(os.Stderr, "Reports in %s\n", outputDir)

	return nil
}

// sanitizeFilename turns a question into a safe file stem: spaces become
// hyphens, filesystem-hostile characters become underscores, and the stem
// is capped at 100 bytes.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	stem := b.String()
	if len(stem) > 100 {
		stem = stem[:100]
	}
	return stem
}
