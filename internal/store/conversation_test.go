package store

import (
	"errors"
	"testing"
	"time"

	"github.com/chatsync/internal/model"
)

func individual(id, name string, a, b string) *model.Conversation {
	return &model.Conversation{
		ID:               id,
		ConversationType: model.ConversationTypeIndividual,
		Participants:     model.NewSet(a, b),
		Name:             name,
	}
}

func TestConversationUpsertLastWriteWins(t *testing.T) {
	s := NewConversationStore()
	names := []string{"first", "second", "third"}
	for _, n := range names {
		if err := s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: individual("c1", n, "u1", "u2")}); err != nil {
			t.Fatalf("apply %s: %v", n, err)
		}
	}
	got, err := s.Get("c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "third" {
		t.Errorf("name = %q, want %q", got.Name, "third")
	}
	if len(s.List()) != 1 {
		t.Errorf("list len = %d, want 1", len(s.List()))
	}
	if s.Revision() != 3 {
		t.Errorf("revision = %d, want 3", s.Revision())
	}
}

func TestConversationUpsertIgnoresTimestamps(t *testing.T) {
	s := NewConversationStore()
	newer := individual("c1", "newer", "u1", "u2")
	newer.LastMessage.Timestamp = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := individual("c1", "older", "u1", "u2")
	older.LastMessage.Timestamp = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: newer})
	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: older})

	got, _ := s.Get("c1")
	if got.Name != "older" {
		t.Errorf("arrival order must win, got %q", got.Name)
	}
}

func TestConversationIndividualParticipants(t *testing.T) {
	s := NewConversationStore()
	bad := &model.Conversation{ID: "c1", ConversationType: model.ConversationTypeIndividual, Participants: model.NewSet("u1")}
	if err := s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: bad}); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}

	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: individual("c2", "x", "u1", "u2")})
	err := s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: individual("c2", "x", "u1", "u3")})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("participant change must be rejected, got %v", err)
	}
	got, _ := s.Get("c2")
	if !got.Participants.Has("u2") {
		t.Errorf("participants changed: %v", got.Participants.Slice())
	}
}

func TestConversationRemove(t *testing.T) {
	s := NewConversationStore()
	c := individual("c1", "x", "u1", "u2")
	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: c})
	if err := s.Apply(ConversationEvent{Kind: EventRemove, Conversation: &model.Conversation{ID: "c1"}}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Get("c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := s.Apply(ConversationEvent{Kind: EventRemove, Conversation: &model.Conversation{ID: "c1"}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: expected not found, got %v", err)
	}
}

func TestConversationSnapshotsAreCopies(t *testing.T) {
	s := NewConversationStore()
	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: individual("c1", "x", "u1", "u2")})
	got, _ := s.Get("c1")
	got.Name = "mutated"
	got.Participants.Add("u9")

	again, _ := s.Get("c1")
	if again.Name != "x" || again.Participants.Has("u9") {
		t.Errorf("store state leaked through snapshot: %+v", again)
	}
}

func TestConversationResetSummary(t *testing.T) {
	s := NewConversationStore()
	c := individual("c1", "x", "u1", "u2")
	c.UnreadCount = 4
	c.LastMessage = model.LastMessage{Content: "hi", SenderID: "u2", Type: model.MessageTypeText}
	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: c})

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := s.ResetSummary("c1", at); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, _ := s.Get("c1")
	if got.UnreadCount != 0 || got.LastMessage.Content != "" || got.LastMessage.SenderID != "" {
		t.Errorf("summary not reset: %+v", got)
	}
	if !got.LastMessageAt().Equal(at) {
		t.Errorf("last message at = %v, want %v", got.LastMessageAt(), at)
	}
	if err := s.ResetSummary("missing", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestConversationSubscribe(t *testing.T) {
	s := NewConversationStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: individual("c1", "x", "u1", "u2")})
	select {
	case c := <-ch:
		if c.Revision != 1 || c.ConversationID != "c1" || c.Kind != ChangeConversation {
			t.Errorf("unexpected change %+v", c)
		}
	default:
		t.Fatal("no change delivered")
	}
}

func TestSubscriberOverflowKeepsNewest(t *testing.T) {
	s := NewConversationStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		_ = s.SetLocked("missing", true)
		_ = s.Apply(ConversationEvent{Kind: EventUpsert, Conversation: individual("c1", "x", "u1", "u2")})
	}
	var last Change
	n := 0
	for {
		select {
		case c := <-ch:
			last = c
			n++
			continue
		default:
		}
		break
	}
	if n != subscriberBuffer {
		t.Errorf("buffered %d changes, want %d", n, subscriberBuffer)
	}
	if last.Revision != uint64(total) {
		t.Errorf("last revision = %d, want %d", last.Revision, total)
	}
}
