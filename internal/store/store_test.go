package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sparkyhq/sparky/internal/model"
)

// fakeReplicator records mirror calls and can fail on demand
type fakeReplicator struct {
	conversations []model.Conversation
	messages      map[string][]model.Message
	remote        []model.Conversation
	failSaves     bool
}

func newFakeReplicator() *fakeReplicator {
	return &fakeReplicator{messages: make(map[string][]model.Message)}
}

func (f *fakeReplicator) SaveConversation(ctx context.Context, conv model.Conversation) error {
	if f.failSaves {
		return errors.New("connection refused")
	}
	f.conversations = append(f.conversations, conv)
	return nil
}

func (f *fakeReplicator) SaveMessage(ctx context.Context, conversationID string, msg model.Message) error {
	if f.failSaves {
		return errors.New("connection refused")
	}
	f.messages[conversationID] = append(f.messages[conversationID], msg)
	return nil
}

func (f *fakeReplicator) LoadConversations(ctx context.Context) ([]model.Conversation, error) {
	if f.remote == nil {
		return nil, errors.New("remote unavailable")
	}
	return f.remote, nil
}

func newTestStore(t *testing.T, mirror Replicator) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "state.json"), mirror, nil)
}

func TestAddMessagePreservesCallOrder(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	conv := model.NewConversation()
	if err := s.AddConversation(ctx, conv); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}

	var want []string
	for i := 0; i < 10; i++ {
		msg := model.NewMessage(model.RoleUser, fmt.Sprintf("step %d", i))
		want = append(want, msg.ID)
		if err := s.AddMessage(ctx, conv.ID, msg); err != nil {
			t.Fatalf("AddMessage %d: %v", i, err)
		}
	}

	got, ok := s.Conversation(conv.ID)
	if !ok {
		t.Fatal("conversation missing")
	}
	for i, msg := range got.Messages {
		if msg.ID != want[i] {
			t.Fatalf("message %d out of order: got %s want %s", i, msg.ID, want[i])
		}
	}
}

func TestAddConversationSetsCurrent(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	first := model.NewConversation()
	second := model.NewConversation()
	s.AddConversation(ctx, first)
	s.AddConversation(ctx, second)

	if got := s.CurrentConversationID(); got != second.ID {
		t.Errorf("current = %s, want most recently added %s", got, second.ID)
	}

	if err := s.SetCurrentConversation(first.ID); err != nil {
		t.Fatalf("SetCurrentConversation: %v", err)
	}
	cur, ok := s.CurrentConversation()
	if !ok || cur.ID != first.ID {
		t.Errorf("current conversation = %v, want %s", cur.ID, first.ID)
	}
}

func TestSetCurrentConversationUnknownID(t *testing.T) {
	s := newTestStore(t, nil)

	err := s.SetCurrentConversation("9b2d7a14-31c8-4f6e-8a2b-0c3d4e5f6a7b")
	if !errors.Is(err, ErrUnknownConversation) {
		t.Errorf("err = %v, want ErrUnknownConversation", err)
	}
}

func TestAddMessageUnknownConversation(t *testing.T) {
	s := newTestStore(t, nil)

	err := s.AddMessage(context.Background(), "missing", model.NewMessage(model.RoleUser, "hi"))
	if !errors.Is(err, ErrUnknownConversation) {
		t.Errorf("err = %v, want ErrUnknownConversation", err)
	}
}

func TestSetAppliance(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	conv := model.NewConversation()
	if err := s.AddConversation(ctx, conv); err != nil {
		t.Fatalf("AddConversation: %v", err)
	}

	appliance := &model.Appliance{Model: "WTW5000DW", Brand: "Whirlpool", SerialNumber: "C81234567"}
	if err := s.SetAppliance(conv.ID, appliance); err != nil {
		t.Fatalf("SetAppliance: %v", err)
	}

	got, ok := s.Conversation(conv.ID)
	if !ok || got.Appliance == nil || got.Appliance.Model != "WTW5000DW" {
		t.Errorf("appliance = %+v", got.Appliance)
	}

	err := s.SetAppliance("missing", appliance)
	if !errors.Is(err, ErrUnknownConversation) {
		t.Errorf("err = %v, want ErrUnknownConversation", err)
	}
}

func TestUpdateConfig(t *testing.T) {
	s := newTestStore(t, nil)

	t.Run("shallow merge", func(t *testing.T) {
		providers := []model.AIProvider{
			{ID: "openai", Name: "OpenAI (GPT-4)", Enabled: true},
			{ID: "claude", Name: "Claude", Enabled: false},
		}
		if err := s.UpdateConfig(ConfigPatch{Providers: providers}); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		cfg := s.Config()
		if len(cfg.Providers) != 2 {
			t.Fatalf("providers = %d, want 2", len(cfg.Providers))
		}
		if cfg.ActiveProvider != "openai" {
			t.Errorf("active provider changed unexpectedly: %q", cfg.ActiveProvider)
		}
	})

	t.Run("dangling active provider rejected", func(t *testing.T) {
		before := s.Config()
		active := "grok"
		err := s.UpdateConfig(ConfigPatch{ActiveProvider: &active})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Fatalf("err = %v, want ErrUnknownProvider", err)
		}
		if !reflect.DeepEqual(s.Config(), before) {
			t.Error("config changed despite rejected update")
		}
	})

	t.Run("valid switch", func(t *testing.T) {
		active := "claude"
		if err := s.UpdateConfig(ConfigPatch{ActiveProvider: &active}); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		if s.Config().ActiveProvider != "claude" {
			t.Errorf("active provider = %q", s.Config().ActiveProvider)
		}
	})
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	s := New(path, nil, nil)
	conv := model.NewConversation()
	conv.Title = "Washer won't drain"
	s.AddConversation(ctx, conv)
	s.AddMessage(ctx, conv.ID, model.NewMessage(model.RoleUser, "standing water in the tub"))
	s.AddMessage(ctx, conv.ID, model.NewMessage(model.RoleAssistant, "SAFETY WARNING: unplug the unit first."))

	// A fresh store over the same file must reproduce identical state
	reloaded := New(path, nil, nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Compare serialized forms; in-memory timestamps carry monotonic
	// clock readings that never survive a round trip
	if got, want := flatten(t, reloaded), flatten(t, s); got != want {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", got, want)
	}
}

func flatten(t *testing.T, s *Store) string {
	t.Helper()
	data, err := json.Marshal(persistedState{
		Conversations:       s.Conversations(),
		CurrentConversation: s.CurrentConversationID(),
		Config:              s.Config(),
	})
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return string(data)
}

func TestMirrorGatedOnCanonicalID(t *testing.T) {
	rep := newFakeReplicator()
	s := newTestStore(t, rep)
	ctx := context.Background()

	conv := model.NewConversation()
	s.AddConversation(ctx, conv)

	good := model.NewMessage(model.RoleUser, "mirrored")
	bad := model.Message{ID: "msg-1", Role: model.RoleUser, Content: "local only"}

	s.AddMessage(ctx, conv.ID, good)
	s.AddMessage(ctx, conv.ID, bad)

	// Local append happened for both
	got, _ := s.Conversation(conv.ID)
	if len(got.Messages) != 2 {
		t.Fatalf("local messages = %d, want 2", len(got.Messages))
	}

	// Only the canonical id reached the mirror
	mirrored := rep.messages[conv.ID]
	if len(mirrored) != 1 || mirrored[0].ID != good.ID {
		t.Errorf("mirrored = %+v, want only %s", mirrored, good.ID)
	}
}

func TestMirrorFailureDoesNotFailMutation(t *testing.T) {
	rep := newFakeReplicator()
	rep.failSaves = true
	s := newTestStore(t, rep)
	ctx := context.Background()

	conv := model.NewConversation()
	if err := s.AddConversation(ctx, conv); err != nil {
		t.Fatalf("AddConversation should swallow mirror failure, got %v", err)
	}
	if err := s.AddMessage(ctx, conv.ID, model.NewMessage(model.RoleUser, "hi")); err != nil {
		t.Fatalf("AddMessage should swallow mirror failure, got %v", err)
	}

	got, _ := s.Conversation(conv.ID)
	if len(got.Messages) != 1 {
		t.Errorf("local state must be committed regardless of mirror outcome")
	}
}

func TestLoadReplacesWithRemote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	// Seed a local-only conversation
	local := New(path, nil, nil)
	localConv := model.NewConversation()
	local.AddConversation(ctx, localConv)

	remoteConv := model.NewConversation()
	remoteConv.Title = "From remote"
	rep := newFakeReplicator()
	rep.remote = []model.Conversation{remoteConv}

	s := New(path, rep, nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	convs := s.Conversations()
	if len(convs) != 1 || convs[0].ID != remoteConv.ID {
		t.Errorf("remote rehydration must fully replace local conversations, got %+v", convs)
	}
}

func TestLoadRemoteFailureKeepsLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	local := New(path, nil, nil)
	conv := model.NewConversation()
	local.AddConversation(ctx, conv)

	rep := newFakeReplicator() // remote == nil -> LoadConversations fails
	s := New(path, rep, nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load must not fail on remote errors: %v", err)
	}

	convs := s.Conversations()
	if len(convs) != 1 || convs[0].ID != conv.ID {
		t.Errorf("local state must survive remote failure, got %+v", convs)
	}
}
