// Package store is the state container for conversations, the active
// conversation pointer and provider configuration. It owns all
// in-memory state, serializes the whole of it to a local state file on
// every mutation, and mirrors committed records to an optional remote
// replica. Local persistence is authoritative; mirroring is
// best-effort and never fails a mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sparkyhq/sparky/internal/event"
	"github.com/sparkyhq/sparky/internal/model"
)

var (
	// ErrUnknownConversation is returned for ids that reference no
	// conversation in the store
	ErrUnknownConversation = errors.New("unknown conversation id")

	// ErrUnknownProvider is returned when a config update would leave
	// activeProvider dangling
	ErrUnknownProvider = errors.New("active provider not in provider list")
)

// Replicator mirrors committed records to a remote store. All methods
// are best-effort from the store's point of view: errors are logged
// and swallowed.
type Replicator interface {
	SaveConversation(ctx context.Context, conv model.Conversation) error
	SaveMessage(ctx context.Context, conversationID string, msg model.Message) error
	LoadConversations(ctx context.Context) ([]model.Conversation, error)
}

// Store holds the application state. Construct with New and call Load
// before use; there is no package-level instance.
type Store struct {
	mu            sync.RWMutex
	conversations []model.Conversation
	current       string
	config        model.AppConfig

	path   string
	mirror Replicator // nil without an authenticated remote session
	bus    *event.Bus // nil is fine, events are then dropped
}

// persistedState is the single JSON document written to the state file
type persistedState struct {
	Conversations       []model.Conversation `json:"conversations"`
	CurrentConversation string               `json:"currentConversation"`
	Config              model.AppConfig      `json:"config"`
}

// New creates a store persisting to path. mirror may be nil when no
// remote session is configured.
func New(path string, mirror Replicator, bus *event.Bus) *Store {
	return &Store{
		conversations: []model.Conversation{},
		config:        model.DefaultConfig(),
		path:          path,
		mirror:        mirror,
		bus:           bus,
	}
}

// Load rehydrates state from the local state file, then — when a
// remote session exists — replaces the conversation list with the
// remote copy, newest first. Remote failures fall back to the local
// state.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var state persistedState
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("decode state file: %w", err)
		}
		if state.Conversations != nil {
			s.conversations = state.Conversations
		}
		s.current = state.CurrentConversation
		if len(state.Config.Providers) > 0 {
			s.config = state.Config
		}
	case os.IsNotExist(err):
		// First run, defaults stand
	default:
		return fmt.Errorf("read state file: %w", err)
	}

	if s.mirror != nil {
		remote, err := s.mirror.LoadConversations(ctx)
		if err != nil {
			log.Printf("[Store] Failed to load conversations from remote: %v", err)
		} else {
			// Full replace, remote wins over local rehydration
			s.conversations = remote
		}
	}

	s.persistLocked()
	return nil
}

// AddConversation appends a conversation and makes it current. The
// mutation succeeds once local state is updated; mirroring failures
// are logged only.
func (s *Store) AddConversation(ctx context.Context, conv model.Conversation) error {
	s.mu.Lock()
	s.conversations = append(s.conversations, conv)
	s.current = conv.ID
	s.persistLocked()
	s.mu.Unlock()

	s.publish(event.TypeConversationCreated, conv.ID, conv)

	if s.mirror != nil && model.ValidID(conv.ID) {
		if err := s.mirror.SaveConversation(ctx, conv); err != nil {
			log.Printf("[Store] Failed to save conversation to remote: %v", err)
		}
	}
	return nil
}

// SetCurrentConversation switches the active conversation pointer
func (s *Store) SetCurrentConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findLocked(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	s.current = id
	s.persistLocked()
	return nil
}

// AddMessage appends a message to the named conversation, preserving
// call order. The remote write is skipped for non-canonical message
// ids; the local append still happens either way.
func (s *Store) AddMessage(ctx context.Context, conversationID string, msg model.Message) error {
	s.mu.Lock()
	idx, ok := s.findLocked(conversationID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
	}
	s.conversations[idx].Messages = append(s.conversations[idx].Messages, msg)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(event.TypeMessageAdded, conversationID, msg)

	if s.mirror != nil && model.ValidID(msg.ID) {
		if err := s.mirror.SaveMessage(ctx, conversationID, msg); err != nil {
			log.Printf("[Store] Failed to save message to remote: %v", err)
		}
	}
	return nil
}

// SetAppliance attaches appliance metadata to a conversation, usually
// after a scanned QR payload decoded into a descriptor
func (s *Store) SetAppliance(id string, appliance *model.Appliance) error {
	s.mu.Lock()
	idx, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	s.conversations[idx].Appliance = appliance
	conv := s.conversations[idx]
	s.persistLocked()
	s.mu.Unlock()

	s.publish(event.TypeConversationUpdated, id, conv)
	return nil
}

// ConfigPatch is a partial config update; nil fields are unchanged
type ConfigPatch struct {
	ActiveProvider *string            `json:"activeProvider,omitempty"`
	Providers      []model.AIProvider `json:"providers,omitempty"`
}

// UpdateConfig shallow-merges the patch into the config. The merged
// activeProvider must reference a known provider, otherwise the config
// is left untouched.
func (s *Store) UpdateConfig(patch ConfigPatch) error {
	s.mu.Lock()

	merged := s.config
	if patch.ActiveProvider != nil {
		merged.ActiveProvider = *patch.ActiveProvider
	}
	if patch.Providers != nil {
		merged.Providers = patch.Providers
	}

	if _, ok := merged.Provider(merged.ActiveProvider); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProvider, merged.ActiveProvider)
	}

	s.config = merged
	s.persistLocked()
	s.mu.Unlock()

	s.publish(event.TypeConfigUpdated, "", merged)
	return nil
}

// Conversations returns a snapshot of all conversations
func (s *Store) Conversations() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Conversation returns the conversation with the given id
func (s *Store) Conversation(id string) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.findLocked(id); ok {
		return s.conversations[idx], true
	}
	return model.Conversation{}, false
}

// CurrentConversationID returns the active conversation pointer, or
// empty when none is active
func (s *Store) CurrentConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CurrentConversation returns the active conversation
func (s *Store) CurrentConversation() (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.findLocked(s.current); ok {
		return s.conversations[idx], true
	}
	return model.Conversation{}, false
}

// Config returns the current provider configuration
func (s *Store) Config() model.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// findLocked returns the index of a conversation; callers hold s.mu
func (s *Store) findLocked(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// persistLocked serializes the full state to the state file; callers
// hold s.mu. Persistence failures are logged, the in-memory mutation
// stands.
func (s *Store) persistLocked() {
	state := persistedState{
		Conversations:       s.conversations,
		CurrentConversation: s.current,
		Config:              s.config,
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("[Store] Failed to encode state: %v", err)
		return
	}
	if err := atomicWriteFile(s.path, data, 0600); err != nil {
		log.Printf("[Store] Failed to persist state: %v", err)
	}
}

func (s *Store) publish(eventType, conversationID string, payload interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&event.Event{
		Type:           eventType,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
		Payload:        payload,
	})
}
