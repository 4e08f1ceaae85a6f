package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alethia/internal/model"
	"github.com/ppiankov/alethia/internal/pipeline"
)

var (
	outJSON     string
	outMD       string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	noStore     bool
	llmProvider string
	llmModel    string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question and verify every claim in the answer",
	Long: `Ask sends a question to the configured LLM provider, then holds the
answer to account:
- Extract factual claims from the generated answer
- Commit the claims under a Merkle root (persisted for later challenges)
- Retrieve evidence for each claim and run the deterministic check battery
- Produce a report with one verdict per claim and fraud proofs for failures

Example:
  alethia ask "When was the Eiffel Tower completed?"
  alethia ask "Who designed the Brooklyn Bridge?" --json report.json --md report.md
  alethia ask "What year did the Berlin Wall fall?" --llm-provider ollama`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	// Output flags
	askCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	askCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	askCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout (generation, retrieval and verification)")
	askCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the retrieval cache (force fresh searches)")
	askCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	askCmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist the commitment")

	// LLM flags
	askCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama; default from config or openai)")
	askCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default from config or gpt-4o-mini)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.HTTP.Timeout = timeout
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter
	if noStore {
		cfg.Store.Path = ""
	}

	if err := resolveLLMEnv(cfg); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Question: %s\n", question)
		fmt.Fprintf(os.Stderr, "Provider: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Generating answer...\n")
	}

	report, err := p.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
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

// resolveLLMEnv overlays the LLM flags onto the config and pulls API keys
// from the environment. The key never comes from a flag.
func resolveLLMEnv(cfg *model.Config) error {
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}

	switch cfg.LLM.Provider {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return nil
}
