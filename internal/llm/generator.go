package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/alethia/internal/model"
)

// AnswerResult carries a generated answer plus provenance for the report
type AnswerResult struct {
	// Enabled is false when the provider was configured but unreachable
	Enabled bool

	// Answer is the generated text; empty when generation did not happen
	Answer string

	// CitedURLs are retrieval seeds found in the answer
	CitedURLs []string

	Provider   string
	Model      string
	TokensUsed int

	// Warnings collect availability and generation problems plus
	// informational notes; they end up in the report verbatim
	Warnings []string
}

// Generator wraps a Provider with availability checks and graceful
// degradation. Provider trouble becomes a warning in the result, never a
// failed run; only a misconfigured provider name errors at construction.
type Generator struct {
	provider Provider
	config   Config
}

// NewGenerator builds a Generator; an empty provider name means disabled
func NewGenerator(config Config) (*Generator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Generator{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (g *Generator) IsEnabled() bool {
	return g.provider != nil
}

// ProviderName returns the configured provider's name, or "" when disabled
func (g *Generator) ProviderName() string {
	if g.provider == nil {
		return ""
	}
	return g.provider.Name()
}

// GenerateAnswer produces an answer for the question. A disabled generator
// returns (nil, nil); an unavailable or failing provider returns a result
// whose warnings say what went wrong.
func (g *Generator) GenerateAnswer(ctx context.Context, question string) (*AnswerResult, error) {
	if g.provider == nil {
		return nil, nil
	}

	result := &AnswerResult{
		Provider: g.provider.Name(),
	}

	if !g.provider.IsAvailable(ctx) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("LLM provider %s is not available - check configuration and connectivity", g.provider.Name()))
		return result, nil
	}

	result.Enabled = true

	resp, err := g.provider.Generate(ctx, GenerateRequest{
		Question:  question,
		Model:     g.config.Model,
		MaxTokens: g.config.MaxTokens,
	})
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("answer generation failed: %v", err))
		return result, nil
	}

	result.Answer = resp.Answer
	result.CitedURLs = resp.CitedURLs
	result.Model = resp.Model
	result.TokensUsed = resp.TokensUsed
	result.Warnings = append(result.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if len(resp.CitedURLs) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Carrying %d cited URLs as retrieval seeds", len(resp.CitedURLs)))
	}

	return result, nil
}

// Meta converts the result into report metadata
func (r *AnswerResult) Meta() *model.LLMMeta {
	if r == nil {
		return nil
	}
	return &model.LLMMeta{
		Provider:   r.Provider,
		Model:      r.Model,
		TokensUsed: r.TokensUsed,
		Warnings:   r.Warnings,
	}
}
