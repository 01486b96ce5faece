package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sparkyhq/sparky/internal/model"
	"github.com/sparkyhq/sparky/internal/qr"
	"github.com/sparkyhq/sparky/internal/store"
)

// aiTimeout bounds one assembler round trip
const aiTimeout = 60 * time.Second

// SendMessageRequest is a user turn from a UI client
type SendMessageRequest struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	Content        string   `json:"content"`
	Images         []string `json:"images,omitempty"`
	Provider       string   `json:"provider,omitempty"`
}

// SendMessageResponse carries both halves of the round trip
type SendMessageResponse struct {
	ConversationID string        `json:"conversation_id"`
	UserMessage    model.Message `json:"user_message"`
	Assistant      model.Message `json:"assistant_message"`
}

// CreateConversationRequest optionally names the conversation and
// attaches appliance metadata up front
type CreateConversationRequest struct {
	Title     string           `json:"title,omitempty"`
	Appliance *model.Appliance `json:"appliance,omitempty"`
}

// ScanRequest is a QR scan payload from the UI's scanner
type ScanRequest struct {
	Payload string `json:"payload"`
}

// AnalyzeRequest asks for image analysis within a conversation
type AnalyzeRequest struct {
	ConversationID string `json:"conversation_id"`
	Image          string `json:"image"`
	Provider       string `json:"provider,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleConversations handles GET/POST /api/conversations
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Conversations())

	case http.MethodPost:
		var req CreateConversationRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		conv := model.NewConversation()
		if req.Title != "" {
			conv.Title = req.Title
		}
		conv.Appliance = req.Appliance

		if err := s.store.AddConversation(r.Context(), conv); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, conv)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleConversationByID routes /api/conversations/{id}[/...]
func (s *Server) handleConversationByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	parts := strings.SplitN(strings.TrimSuffix(path, "/"), "/", 2)
	id := parts[0]
	if id == "" {
		http.Error(w, "Conversation ID required", http.StatusBadRequest)
		return
	}

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		conv, ok := s.store.Conversation(id)
		if !ok {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, conv)

	case action == "select" && r.Method == http.MethodPost:
		if err := s.store.SetCurrentConversation(id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrUnknownConversation) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "messages" && r.Method == http.MethodPost:
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.ConversationID = id

		resp, err := s.sendMessage(r.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrUnknownConversation) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case action == "scan" && r.Method == http.MethodPost:
		var req ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.handleScan(w, r.Context(), id, req.Payload)

	case action == "label" && r.Method == http.MethodGet:
		conv, ok := s.store.Conversation(id)
		if !ok {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		if conv.Appliance == nil {
			http.Error(w, "Conversation has no appliance metadata", http.StatusNotFound)
			return
		}
		png, err := qr.LabelPNG(*conv.Appliance, qr.DefaultLabelSize)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleScan appends the scan message and reports any appliance
// metadata decoded from the payload
func (s *Server) handleScan(w http.ResponseWriter, ctx context.Context, conversationID, payload string) {
	msg := qr.ScanMessage(payload)
	if err := s.store.AddMessage(ctx, conversationID, msg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnknownConversation) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := struct {
		Message   model.Message    `json:"message"`
		Appliance *model.Appliance `json:"appliance,omitempty"`
	}{Message: msg}
	if appliance, ok := qr.ParsePayload(payload); ok {
		resp.Appliance = appliance
		if err := s.store.SetAppliance(conversationID, appliance); err != nil {
			log.Printf("[Server] Failed to attach appliance metadata: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAnalyze handles POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		req.Provider = s.store.Config().ActiveProvider
	}

	ctx, cancel := context.WithTimeout(r.Context(), aiTimeout)
	defer cancel()

	userMsg := model.NewMessage(model.RoleUser, "Please analyze this appliance image:")
	userMsg.Images = []string{req.Image}
	if err := s.store.AddMessage(ctx, req.ConversationID, userMsg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnknownConversation) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	assistant := s.assistantReply(func() (string, error) {
		return s.assembler.AnalyzeImage(ctx, req.Image, req.Provider)
	})
	if err := s.store.AddMessage(ctx, req.ConversationID, assistant); err != nil {
		log.Printf("[Server] Failed to append analysis message: %v", err)
	}

	writeJSON(w, http.StatusOK, SendMessageResponse{
		ConversationID: req.ConversationID,
		UserMessage:    userMsg,
		Assistant:      assistant,
	})
}

// handleConfig handles GET/PUT /api/config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, redactConfig(s.store.Config()))

	case http.MethodPut:
		var patch store.ConfigPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.store.UpdateConfig(patch); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrUnknownProvider) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, redactConfig(s.store.Config()))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProviders handles GET /api/providers
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, redactConfig(s.store.Config()).Providers)
}

// sendMessage runs the full round trip: ask the assembler, then append
// the user message and the assistant reply. Assembler failures become
// an error-carrying assistant message, never a failed append.
func (s *Server) sendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = s.store.CurrentConversationID()
	}
	if conversationID == "" {
		// First message with no active conversation starts one
		conv := model.NewConversation()
		if err := s.store.AddConversation(ctx, conv); err != nil {
			return SendMessageResponse{}, err
		}
		conversationID = conv.ID
	}

	// The assembler reads history from the current conversation
	if s.store.CurrentConversationID() != conversationID {
		if err := s.store.SetCurrentConversation(conversationID); err != nil {
			return SendMessageResponse{}, err
		}
	}

	provider := req.Provider
	if provider == "" {
		provider = s.store.Config().ActiveProvider
	}

	// The assembler appends the new user text itself; its history window
	// must see the conversation as it was before this turn, so both
	// messages are appended after the provider call.
	assistant := s.assistantReply(func() (string, error) {
		return s.assembler.GetResponse(ctx, req.Content, provider)
	})

	userMsg := model.NewMessage(model.RoleUser, req.Content)
	userMsg.Images = req.Images
	if err := s.store.AddMessage(ctx, conversationID, userMsg); err != nil {
		return SendMessageResponse{}, err
	}
	if err := s.store.AddMessage(ctx, conversationID, assistant); err != nil {
		return SendMessageResponse{}, err
	}

	return SendMessageResponse{
		ConversationID: conversationID,
		UserMessage:    userMsg,
		Assistant:      assistant,
	}, nil
}

// assistantReply turns an assembler result into the appended assistant
// message; failures surface as the message's error text
func (s *Server) assistantReply(call func() (string, error)) model.Message {
	content, err := call()
	if err != nil {
		log.Printf("[Server] AI request failed: %v", err)
		msg := model.NewMessage(model.RoleAssistant, "")
		msg.Error = err.Error()
		return msg
	}
	return model.NewMessage(model.RoleAssistant, content)
}

// redactConfig strips credentials before config leaves the process
func redactConfig(cfg model.AppConfig) model.AppConfig {
	providers := make([]model.AIProvider, len(cfg.Providers))
	copy(providers, cfg.Providers)
	for i := range providers {
		providers[i].APIKey = ""
	}
	cfg.Providers = providers
	return cfg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
