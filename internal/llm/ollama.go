package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/alethia/internal/util"
)

// OllamaProvider serves generations from a local Ollama daemon
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Request and response shapes of Ollama's /api/generate endpoint
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`

	// Token counts arrive only on the final message
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a provider talking to an Ollama daemon,
// by default the local one
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	base := config.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(base, "/"),
		httpClient: &http.Client{
			// Local models routinely take longer than hosted APIs
			Timeout: clientTimeout(config.Timeout, 60*time.Second),
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		config: config,
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// IsAvailable reports whether the daemon answers its model listing endpoint
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ollama not reachable at %s: %v\n", p.baseURL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Warning: ollama answered HTTP %d at %s\n", resp.StatusCode, p.baseURL)
		return false
	}
	return true
}

// Generate produces an answer with a local model. Ollama ships no
// default model, so one must be configured.
func (p *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	prompt, model, maxTokens := resolveRequest(req, p.config, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		System: systemPrompt,
		Options: ollamaOptions{
			Temperature: 0.3,
			NumPredict:  maxTokens,
		},
	}

	var resp ollamaResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/api/generate", nil, apiReq, &resp, ollamaAPIError); err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}

	answer := strings.TrimSpace(resp.Response)

	// Some models report zero counts; estimate rather than report nothing
	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		tokens = (len(prompt) + len(answer)) / 4
	}

	return &GenerateResponse{
		Answer:     answer,
		CitedURLs:  extractURLs(answer),
		Model:      resp.Model,
		TokensUsed: tokens,
	}, nil
}

// ollamaAPIError surfaces the daemon's error field when present
func ollamaAPIError(status int, body []byte) error {
	var apiErr ollamaError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("API error (%d): %s", status, apiErr.Error)
	}
	return fmt.Errorf("API error (%d): %s", status, string(body))
}
