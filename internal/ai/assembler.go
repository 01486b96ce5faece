// Package ai assembles chat-completion and image-analysis requests
// from conversation state and dispatches them to a configured
// provider. Each call is a single stateless request/response; only
// transient transport failures are retried.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sparkyhq/sparky/internal/model"
)

// historyWindow is how many prior messages of the active conversation
// are included as context, oldest first
const historyWindow = 4

// Fixed request parameters
var (
	chatOptions   = ChatOptions{Model: "gpt-4", Temperature: 0.7, MaxTokens: 500}
	visionOptions = ChatOptions{Model: "gpt-4-turbo", MaxTokens: 500}
)

// ConversationSource exposes the store state the assembler reads
type ConversationSource interface {
	Config() model.AppConfig
	CurrentConversation() (model.Conversation, bool)
}

// Assembler builds and dispatches AI requests
type Assembler struct {
	source    ConversationSource
	providers map[string]Provider
}

// NewAssembler creates an assembler over the given providers
func NewAssembler(source ConversationSource, providers ...Provider) *Assembler {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.ID()] = p
	}
	return &Assembler{source: source, providers: m}
}

// GetResponse classifies the user text, assembles the system prompt
// plus the tail of the active conversation, and returns the provider's
// completion text.
func (a *Assembler) GetResponse(ctx context.Context, userText, providerID string) (string, error) {
	provider, err := a.resolve(providerID)
	if err != nil {
		return "", err
	}

	applianceRelated := isApplianceRelated(userText)

	systemPrompt := SystemPrompt
	if !applianceRelated {
		systemPrompt = SystemPrompt + "\n\nResponse Format:\n" + OffTopicResponse
		userText = userText + "\n\nNote: This appears to be off-topic."
	}

	messages := []Message{{Role: "system", Content: systemPrompt}}
	if conv, ok := a.source.CurrentConversation(); ok {
		history := conv.Messages
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
		for _, m := range history {
			messages = append(messages, Message{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, Message{Role: model.RoleUser, Content: userText})

	raw, err := provider.Chat(ctx, messages, chatOptions)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s API error: %w", apiErr.Provider, err)
		}
		return "", err
	}
	return validateResponse(raw)
}

// AnalyzeImage sends the fixed analysis prompt plus the image payload
// to a vision-capable provider
func (a *Assembler) AnalyzeImage(ctx context.Context, imageURL, providerID string) (string, error) {
	provider, err := a.resolve(providerID)
	if err != nil {
		return "", err
	}

	vision, ok := provider.(VisionProvider)
	if !ok {
		return "", &VisionUnsupportedError{Name: providerID}
	}

	raw, err := vision.AnalyzeImage(ctx, AnalysisPrompt, imageURL, visionOptions)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s Vision API error: %w", apiErr.Provider, err)
		}
		return "", err
	}
	return validateResponse(raw)
}

// resolve checks the request preconditions: the provider must exist in
// config, be enabled, be registered, and have a credential. No network
// call happens when any of these fail.
func (a *Assembler) resolve(providerID string) (Provider, error) {
	cfg := a.source.Config()

	pc, ok := cfg.Provider(providerID)
	if !ok {
		return nil, &ProviderUnavailableError{Name: "Selected", Reason: "unknown provider " + providerID}
	}
	if !pc.Enabled {
		return nil, &ProviderUnavailableError{Name: pc.Name, Reason: "provider is disabled"}
	}

	provider, ok := a.providers[providerID]
	if !ok {
		return nil, &ProviderUnavailableError{Name: pc.Name, Reason: "no implementation registered"}
	}
	if !provider.HasCredential() {
		return nil, &ProviderUnavailableError{Name: pc.Name, Reason: "API key not set"}
	}
	return provider, nil
}

// isApplianceRelated matches the input against the fixed appliance
// vocabulary, case-insensitively
func isApplianceRelated(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range applianceVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// validateResponse enforces the response taxonomy: content must be
// present, textual, and non-blank
func validateResponse(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrEmptyResponse
	}
	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", ErrMalformedResponse
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrBlankResponse
	}
	return content, nil
}
