package model

import "time"

// BatchReport is the pipeline's output artifact: one committed batch of
// claims with per-claim verification results and summary counts.
type BatchReport struct {
	Question    string               `json:"question,omitempty"`   // Original question (ask mode)
	Answer      string               `json:"answer,omitempty"`     // Generated answer the claims came from
	SourceURL   string               `json:"source_url,omitempty"` // Fetched page (page mode)
	Commitment  *Commitment          `json:"commitment,omitempty"`
	Claims      []Claim              `json:"claims"`
	Results     []VerificationResult `json:"results"` // Index-aligned with Claims
	Summary     ReportSummary        `json:"summary"`
	GeneratedAt time.Time            `json:"generated_at"`
	LLM         *LLMMeta             `json:"llm,omitempty"` // Present when an LLM produced the answer
}

// ReportSummary tallies verdicts across the batch
type ReportSummary struct {
	Verified    int `json:"verified"`
	Uncertain   int `json:"uncertain"`
	FraudProven int `json:"fraud_proven"`
}

// LLMMeta records which model produced the answer. Informational only:
// verdicts never depend on it.
type LLMMeta struct {
	Provider   string   `json:"provider,omitempty"`    // openai, anthropic, ollama
	Model      string   `json:"model,omitempty"`       // Model name
	TokensUsed int      `json:"tokens_used,omitempty"` // Total tokens reported by the provider
	Warnings   []string `json:"warnings,omitempty"`    // Degradations (e.g., provider unavailable)
}

// CountVerdicts derives the summary from a result set
func CountVerdicts(results []VerificationResult) ReportSummary {
	var s ReportSummary
	for _, r := range results {
		switch r.Verdict {
		case VerdictVerified:
			s.Verified++
		case VerdictUncertain:
			s.Uncertain++
		case VerdictFraudProven:
			s.FraudProven++
		}
	}
	return s
}
