package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/alethia/internal/model"
)

// Renderer writes batch reports as JSON, Markdown and stdout digests
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.BatchReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes the report as a human-readable Markdown document
func (r *Renderer) RenderMarkdown(report *model.BatchReport, path string) error {
	var b strings.Builder

	b.WriteString("# Alethia Verification Report\n\n")

	if report.Question != "" {
		fmt.Fprintf(&b, "**Question:** %s\n\n", report.Question)
	}
	if report.SourceURL != "" {
		fmt.Fprintf(&b, "**Source:** %s\n\n", report.SourceURL)
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))

	if report.Commitment != nil {
		fmt.Fprintf(&b, "**Commitment root:** `%s`\n\n", report.Commitment.Root)
		fmt.Fprintf(&b, "**Claims committed:** %d\n\n", report.Commitment.ClaimCount)
	}

	// Summary table
	b.WriteString("## Summary\n\n")
	b.WriteString("| Verdict | Count |\n")
	b.WriteString("|---------|------:|\n")
	fmt.Fprintf(&b, "| ✅ VERIFIED | %d |\n", report.Summary.Verified)
	fmt.Fprintf(&b, "| ❓ UNCERTAIN | %d |\n", report.Summary.Uncertain)
	fmt.Fprintf(&b, "| ❌ FRAUD_PROVEN | %d |\n\n", report.Summary.FraudProven)

	// Generated answer (ask mode)
	if report.Answer != "" {
		b.WriteString("## Answer\n\n")
		for _, line := range strings.Split(report.Answer, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		b.WriteString("\n")
	}

	// Per-claim breakdown
	b.WriteString("## Claims\n\n")
	for i, claim := range report.Claims {
		fmt.Fprintf(&b, "### Claim %d: %s\n\n", i+1, claim.Text)

		if i >= len(report.Results) {
			continue
		}
		result := report.Results[i]

		fmt.Fprintf(&b, "**Verdict:** %s %s (confidence %d/100)\n\n",
			verdictMark(result.Verdict), result.Verdict, result.Confidence)
		if result.Reasoning != "" {
			fmt.Fprintf(&b, "**Reasoning:** %s\n\n", escapeCell(result.Reasoning))
		}

		if len(result.Checks) > 0 {
			b.WriteString("| Check | Status | Reason |\n")
			b.WriteString("|-------|--------|--------|\n")
			for _, check := range result.Checks {
				status := "✅ pass"
				if !check.Passed {
					status = "❌ fail"
				}
				fmt.Fprintf(&b, "| %s | %s | %s |\n", check.Name, status, escapeCell(check.Reason))
			}
			b.WriteString("\n")
		}

		if result.FraudProof != nil {
			b.WriteString("**Fraud proof:**\n\n")
			fmt.Fprintf(&b, "- Failed check: `%s`\n", result.FraudProof.FailedCheck)
			fmt.Fprintf(&b, "- Reason: %s\n", result.FraudProof.Reason)
			fmt.Fprintf(&b, "- Evidence snapshot: %s\n", result.FraudProof.EvidenceSnapshot)
			fmt.Fprintf(&b, "- Proof hash: `%s`\n\n", result.FraudProof.ProofHash)
		}
	}

	// LLM provenance
	if report.LLM != nil {
		b.WriteString("## LLM\n\n")
		fmt.Fprintf(&b, "- Provider: %s\n", report.LLM.Provider)
		fmt.Fprintf(&b, "- Model: %s\n", report.LLM.Model)
		fmt.Fprintf(&b, "- Tokens used: %d\n", report.LLM.TokensUsed)
		for _, w := range report.LLM.Warnings {
			fmt.Fprintf(&b, "- Note: %s\n", w)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n")
		b.WriteString("*Generated by [Alethia](https://github.com/ppiankov/alethia). ")
		b.WriteString("Every verdict above is reproducible from the committed claim texts and the recorded evidence snapshots.*\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderSummary prints a short digest to stdout
func (r *Renderer) RenderSummary(report *model.BatchReport) {
	fmt.Println()
	if report.Commitment != nil {
		fmt.Printf("Commitment root: %s\n", report.Commitment.Root)
	}
	fmt.Printf("Claims:          %d\n", len(report.Claims))
	fmt.Println()

	for i, claim := range report.Claims {
		if i >= len(report.Results) {
			break
		}
		result := report.Results[i]
		fmt.Printf("  %s [%d] %-12s (%3d) %s\n",
			verdictMark(result.Verdict), i, result.Verdict, result.Confidence, truncate(claim.Text, 60))
	}

	fmt.Println()
	fmt.Printf("Verified: %d   Uncertain: %d   Fraud proven: %d\n",
		report.Summary.Verified, report.Summary.Uncertain, report.Summary.FraudProven)
}

// verdictMark maps a verdict to its display symbol
func verdictMark(v model.Verdict) string {
	switch v {
	case model.VerdictVerified:
		return "✓"
	case model.VerdictFraudProven:
		return "✗"
	default:
		return "?"
	}
}

// escapeCell keeps free text from breaking Markdown table rows
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// truncate shortens s to max runes
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
