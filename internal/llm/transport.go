package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// clientTimeout converts the configured timeout in seconds to a duration,
// falling back when unset.
func clientTimeout(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// resolveRequest fills the blanks of a generation request from the
// provider configuration. An empty defaultModel means the provider has
// no usable fallback; the caller must reject an unresolved model.
func resolveRequest(req GenerateRequest, cfg Config, defaultModel string) (prompt, model string, maxTokens int) {
	prompt = req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Question)
	}

	model = req.Model
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	return prompt, model, maxTokens
}

// postJSON sends payload to url and decodes the 200 response into out.
// Any other status goes through apiError so each provider surfaces its
// own error envelope.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload, out interface{}, apiError func(status int, body []byte) error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
