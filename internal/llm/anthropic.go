package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// AnthropicProvider generates answers through Anthropic's Messages API
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Request and response shapes of the Messages API
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model        string `json:"model"`
	StopReason   string `json:"stop_reason"`
	StopSequence string `json:"stop_sequence"`
	Usage        struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a provider for Anthropic Claude models
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	base := config.BaseURL
	if base == "" {
		base = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: &http.Client{Timeout: clientTimeout(config.Timeout, 30*time.Second)},
		config:     config,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// IsAvailable issues a minimal completion, surfacing key and network
// problems before a real generation is attempted
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	probe := anthropicRequest{
		Model:     "claude-3-5-haiku-20241022",
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	}

	if _, err := p.send(ctx, probe); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: anthropic API check failed: %v\n", err)
		return false
	}
	return true
}

// Generate produces an answer through the Messages API
func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	prompt, model, maxTokens := resolveRequest(req, p.config, "claude-3-5-sonnet-20241022")

	resp, err := p.send(ctx, anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no content in Anthropic response")
	}
	answer := strings.TrimSpace(resp.Content[0].Text)

	return &GenerateResponse{
		Answer:     answer,
		CitedURLs:  extractURLs(answer),
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// send posts one Messages API request with the auth and version headers
func (p *AnthropicProvider) send(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", "2023-06-01")

	var resp anthropicResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", header, apiReq, &resp, anthropicAPIError); err != nil {
		return nil, err
	}
	return &resp, nil
}

// anthropicAPIError surfaces the structured error envelope when present
func anthropicAPIError(status int, body []byte) error {
	var apiErr anthropicError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("API error (%d): %s: %s", status, apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("API error (%d): %s", status, string(body))
}
