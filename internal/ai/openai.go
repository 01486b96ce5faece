package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sparkyhq/sparky/internal/retry"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// APIError is a non-2xx reply from a provider's API. Provider is the
// display label the assembler uses when wrapping the error.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// OpenAIProvider talks to the OpenAI chat completions API. It is the
// only provider in scope with vision support.
type OpenAIProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	policy   retry.Policy
}

// NewOpenAIProvider creates an OpenAI provider. An empty apiKey falls
// back to the OPENAI_API_KEY environment variable, resolved once here.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAIProvider{
		apiKey:   apiKey,
		endpoint: openAIEndpoint,
		client:   &http.Client{},
		policy:   retry.Default(),
	}
}

func (p *OpenAIProvider) ID() string {
	return "openai"
}

func (p *OpenAIProvider) HasCredential() bool {
	return p.apiKey != ""
}

// Chat sends a chat completion request and returns the first choice's
// raw content
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts ChatOptions) (json.RawMessage, error) {
	reqBody := map[string]interface{}{
		"model":       opts.Model,
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
		"messages":    messages,
	}
	return p.complete(ctx, reqBody)
}

// AnalyzeImage sends a vision request: the analysis prompt plus the
// image payload as content blocks
func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, prompt, imageURL string, opts ChatOptions) (json.RawMessage, error) {
	reqBody := map[string]interface{}{
		"model":      opts.Model,
		"max_tokens": opts.MaxTokens,
		"messages": []map[string]interface{}{
			{"role": "system", "content": prompt},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": "Please analyze this appliance image:"},
					{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
				},
			},
		},
	}
	return p.complete(ctx, reqBody)
}

// openAIResponse is the subset of the completion reply we read. The
// content is kept raw so the assembler can reject non-text shapes.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) complete(ctx context.Context, reqBody map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var respBody []byte
	err = p.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return &APIError{Provider: "OpenAI", Status: resp.StatusCode, Body: string(respBody)}
		}
		return nil
	}, isRetryable)
	if err != nil {
		return nil, err
	}

	var result openAIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, nil
	}
	return result.Choices[0].Message.Content, nil
}

// isRetryable treats server-side failures and transport errors as
// transient; client errors and cancellation are terminal
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	// Transport-level failure
	return true
}
