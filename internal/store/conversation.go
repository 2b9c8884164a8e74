package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/chatsync/internal/model"
)

type EventKind string

const (
	EventUpsert EventKind = "upsert"
	EventRemove EventKind = "remove"
)

// ConversationEvent: полный документ чата из ленты (без диффов).
type ConversationEvent struct {
	Kind         EventKind
	Conversation *model.Conversation
}

// ConversationStore держит id -> Conversation. Upsert заменяет запись целиком,
// побеждает последнее пришедшее событие, а не более позднее время.
type ConversationStore struct {
	mu    sync.RWMutex
	items map[string]*model.Conversation
	rev   uint64
	n     notifier
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{items: make(map[string]*model.Conversation)}
}

// Apply применяет событие ленты.
func (s *ConversationStore) Apply(ev ConversationEvent) error {
	if ev.Conversation == nil || ev.Conversation.ID == "" {
		return report("Apply", fmt.Errorf("%w: empty conversation", ErrInvalidOperation))
	}
	id := ev.Conversation.ID
	switch ev.Kind {
	case EventUpsert:
		if err := s.upsert(ev.Conversation.Clone()); err != nil {
			return report("Apply", err)
		}
	case EventRemove:
		s.mu.Lock()
		if _, ok := s.items[id]; !ok {
			s.mu.Unlock()
			return report("Apply", fmt.Errorf("%w: conversation %s", ErrNotFound, id))
		}
		delete(s.items, id)
		s.bump(id)
		s.mu.Unlock()
	default:
		return report("Apply", fmt.Errorf("%w: event kind %q", ErrInvalidOperation, ev.Kind))
	}
	return nil
}

func (s *ConversationStore) upsert(c *model.Conversation) error {
	if c.ConversationType == model.ConversationTypeIndividual && c.Participants.Len() != 2 {
		return fmt.Errorf("%w: individual conversation %s has %d participants", ErrInvalidOperation, c.ID, c.Participants.Len())
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.items[c.ID]; ok && prev.ConversationType == model.ConversationTypeIndividual {
		if !sameSet(prev.Participants, c.Participants) {
			return fmt.Errorf("%w: participants of individual conversation %s are immutable", ErrInvalidOperation, c.ID)
		}
	}
	s.items[c.ID] = c
	s.bump(c.ID)
	return nil
}

// bump вызывается под s.mu.
func (s *ConversationStore) bump(id string) {
	s.rev++
	s.n.publish(Change{Kind: ChangeConversation, Revision: s.rev, ConversationID: id})
}

func (s *ConversationStore) Get(id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("store.Get: %w: conversation %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// List возвращает копии без гарантии порядка; сортирует проектор.
func (s *ConversationStore) List() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Conversation, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, c.Clone())
	}
	return out
}

func (s *ConversationStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

func (s *ConversationStore) Subscribe() (<-chan Change, func()) {
	return s.n.subscribe()
}

func (s *ConversationStore) mutate(op, id string, fn func(c *model.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	if !ok {
		return report(op, fmt.Errorf("%w: conversation %s", ErrNotFound, id))
	}
	fn(c)
	s.bump(id)
	return nil
}

func (s *ConversationStore) SetLocked(id string, locked bool) error {
	return s.mutate("SetLocked", id, func(c *model.Conversation) { c.IsLocked = locked })
}

func (s *ConversationStore) SetVanishMode(id string, on bool) error {
	return s.mutate("SetVanishMode", id, func(c *model.Conversation) { c.IsVanishMode = on })
}

func (s *ConversationStore) SetTheme(id string, theme *string) error {
	return s.mutate("SetTheme", id, func(c *model.Conversation) { c.Theme = cloneString(theme) })
}

func (s *ConversationStore) SetReceivedTheme(id string, theme *string) error {
	return s.mutate("SetReceivedTheme", id, func(c *model.Conversation) { c.ReceivedTheme = cloneString(theme) })
}

// SetLastMessage обновляет сводку после оптимистичной отправки.
func (s *ConversationStore) SetLastMessage(id string, last model.LastMessage) error {
	return s.mutate("SetLastMessage", id, func(c *model.Conversation) { c.LastMessage = last })
}

// ResetSummary очищает сводку последнего сообщения и счётчик непрочитанных (очистка чата).
func (s *ConversationStore) ResetSummary(id string, at time.Time) error {
	return s.mutate("ResetSummary", id, func(c *model.Conversation) {
		c.LastMessage = model.LastMessage{Type: model.MessageTypeText, Timestamp: at}
		c.UnreadCount = 0
	})
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func sameSet(a, b model.Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}
	return true
}
