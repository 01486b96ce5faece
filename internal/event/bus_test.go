package event

import (
	"testing"
	"time"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern   string
		eventType string
		want      bool
	}{
		{"*", "message.added", true},
		{"message.*", "message.added", true},
		{"message.added", "message.added", true},
		{"message.*", "conversation.created", false},
		{"message.added", "message", false},
		{"message", "message.added", false},
		{"conversation.*", "conversation.created", true},
	}

	for _, tc := range tests {
		if got := matchPattern(tc.pattern, tc.eventType); got != tc.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tc.pattern, tc.eventType, got, tc.want)
		}
	}
}

func TestPublishRoutesToMatchingSubscribers(t *testing.T) {
	bus := NewBus()

	matched := make(chan *Event, 1)
	bus.Subscribe([]string{"message.*"}, func(evt *Event) {
		matched <- evt
	})

	unmatched := make(chan *Event, 1)
	bus.Subscribe([]string{"config.*"}, func(evt *Event) {
		unmatched <- evt
	})

	bus.Publish(&Event{Type: TypeMessageAdded, ConversationID: "c1"})

	select {
	case evt := <-matched:
		if evt.ConversationID != "c1" {
			t.Errorf("conversation id = %q", evt.ConversationID)
		}
	case <-time.After(time.Second):
		t.Fatal("matching subscriber never received the event")
	}

	select {
	case <-unmatched:
		t.Error("config subscriber received a message event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	received := make(chan *Event, 1)
	id := bus.Subscribe([]string{"*"}, func(evt *Event) {
		received <- evt
	})
	bus.Unsubscribe(id)

	bus.Publish(&Event{Type: TypeConversationCreated})

	select {
	case <-received:
		t.Error("unsubscribed handler received an event")
	case <-time.After(50 * time.Millisecond):
	}
}
