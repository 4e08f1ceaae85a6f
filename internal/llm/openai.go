package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider generates answers through OpenAI's Chat Completions API
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a provider for OpenAI models
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// IsAvailable lists models, surfacing key and network problems before a
// real generation is attempted
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: openai API check failed: %v\n", err)
		return false
	}
	return true
}

// Generate produces an answer through the Chat Completions API
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	prompt, model, maxTokens := resolveRequest(req, p.config, openai.GPT4oMini)

	callCtx, cancel := context.WithTimeout(ctx, clientTimeout(p.config.Timeout, 30*time.Second))
	defer cancel()

	resp, err := p.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
		// Low temperature keeps answers factual and repeatable
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)

	return &GenerateResponse{
		Answer:     answer,
		CitedURLs:  extractURLs(answer),
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
