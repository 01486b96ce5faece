package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Response validation errors for provider output
var (
	ErrEmptyResponse     = errors.New("no response received from AI")
	ErrMalformedResponse = errors.New("invalid response format received")
	ErrBlankResponse     = errors.New("empty response received")
)

// ProviderUnavailableError means a provider cannot serve requests:
// unknown id, disabled in config, or no credential resolved
type ProviderUnavailableError struct {
	Name   string
	Reason string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("%s AI provider not available: %s", e.Name, e.Reason)
}

// VisionUnsupportedError means the provider has no image-analysis
// capability
type VisionUnsupportedError struct {
	Name string
}

func (e *VisionUnsupportedError) Error() string {
	return fmt.Sprintf("image analysis not supported for %s", e.Name)
}

// Message is one turn sent to a provider
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions are the fixed request parameters for a completion call
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is a chat-completion backend. Chat returns the first
// completion's raw content so the assembler can validate its shape.
type Provider interface {
	ID() string
	HasCredential() bool
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (json.RawMessage, error)
}

// VisionProvider additionally accepts an image payload
type VisionProvider interface {
	Provider
	AnalyzeImage(ctx context.Context, prompt, imageURL string, opts ChatOptions) (json.RawMessage, error)
}
