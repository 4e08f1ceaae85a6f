package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Provider generates the answers whose claims get committed and verified
type Provider interface {
	Name() string

	// Generate produces an answer for the question in the request
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable reports whether the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for answer generation
type GenerateRequest struct {
	// Question is the user's question
	Question string

	// Prompt is an optional custom prompt (if empty, BuildPrompt is used)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse contains the generated answer
type GenerateResponse struct {
	// Answer is the generated answer text; its sentences become the
	// committed claims
	Answer string

	// CitedURLs are URLs found in the answer. They are carried as
	// retrieval seeds only and never trusted as evidence.
	CitedURLs []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 1000,
	}
}

// systemPrompt frames every generation: answers are split into claims and
// verified sentence by sentence, so the model is told to write that way
const systemPrompt = "You are a careful assistant. Every factual sentence of your answer " +
	"will be split out as an individual claim and checked against independently " +
	"retrieved evidence."

// BuildPrompt constructs the default answering prompt for a question
func BuildPrompt(question string) string {
	return fmt.Sprintf(`Answer the question below in plain declarative sentences.

RULES:
1. One factual assertion per sentence where possible.
2. Include the full URL of a source inline when you rely on one.
3. Prefer concrete names, dates and figures over vague phrasing.
4. If you are not sure about a fact, leave it out entirely.

Question: %s

Answer in 3-6 sentences.`, question)
}

// extractURLs extracts all URLs from text using regex
func extractURLs(text string) []string {
	urlPattern := regexp.MustCompile(`https?://[^\s\)]+`)
	matches := urlPattern.FindAllString(text, -1)

	// Deduplicate and drop trailing punctuation
	seen := make(map[string]bool)
	var unique []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}

	return unique
}
