package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/chatsync/internal/model"
)

// MessageStore: упорядоченный лог сообщений каждого чата с точечными изменениями.
type MessageStore struct {
	mu   sync.RWMutex
	logs map[string][]*model.Message
	rev  uint64
	n    notifier
}

func NewMessageStore() *MessageStore {
	return &MessageStore{logs: make(map[string][]*model.Message)}
}

// less задаёт порядок лога: время с точностью до миллисекунды, при равенстве по id.
func less(a, b *model.Message) bool {
	ta, tb := a.Timestamp.UnixMilli(), b.Timestamp.UnixMilli()
	if ta != tb {
		return ta < tb
	}
	return a.ID < b.ID
}

// AppendOrReplace заменяет сообщение с тем же id на его месте в логе,
// иначе вставляет новое по времени.
func (s *MessageStore) AppendOrReplace(conversationID string, m *model.Message) error {
	if m == nil || m.ID == "" {
		return report("AppendOrReplace", fmt.Errorf("%w: message without id", ErrInvalidOperation))
	}
	msg := m.Clone()
	msg.ConversationID = conversationID

	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[conversationID]
	for i, cur := range log {
		if cur.ID != msg.ID {
			continue
		}
		if cur.DeleteForEveryone && !msg.DeleteForEveryone {
			// Удаление у всех необратимо: запоздавшее эхо не возвращает тело.
			msg = scrub(msg)
		}
		log[i] = msg
		s.bump(conversationID, msg.ID)
		return nil
	}
	if msg.DeleteForEveryone {
		msg = scrub(msg)
	}
	i := len(log)
	for i > 0 && less(msg, log[i-1]) {
		i--
	}
	log = append(log, nil)
	copy(log[i+1:], log[i:])
	log[i] = msg
	s.logs[conversationID] = log
	s.bump(conversationID, msg.ID)
	return nil
}

// ApplyReaction добавляет пользователя в множество реакции. Повтор: без изменений.
// Снятие реакции: отдельная операция RemoveReaction.
func (s *MessageStore) ApplyReaction(conversationID, messageID, userID, emoji string) error {
	return s.mutate("ApplyReaction", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.DeleteForEveryone {
			return false, fmt.Errorf("%w: message %s is deleted", ErrInvalidOperation, messageID)
		}
		if emoji == "" || userID == "" {
			return false, fmt.Errorf("%w: empty reaction", ErrInvalidOperation)
		}
		if m.Reactions == nil {
			m.Reactions = make(map[string]model.Set)
		}
		users, ok := m.Reactions[emoji]
		if !ok {
			users = model.NewSet()
			m.Reactions[emoji] = users
		}
		return users.Add(userID), nil
	})
}

func (s *MessageStore) RemoveReaction(conversationID, messageID, userID, emoji string) error {
	return s.mutate("RemoveReaction", conversationID, messageID, func(m *model.Message) (bool, error) {
		users, ok := m.Reactions[emoji]
		if !ok {
			return false, nil
		}
		changed := users.Remove(userID)
		if users.Len() == 0 {
			delete(m.Reactions, emoji)
		}
		return changed, nil
	})
}

// ApplyVote снимает голос пользователя со всех вариантов и ставит на выбранный -
// у пользователя всегда не больше одного голоса в опросе.
func (s *MessageStore) ApplyVote(conversationID, messageID, userID string, optionIndex int) error {
	return s.mutate("ApplyVote", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.PollInfo == nil || m.DeleteForEveryone {
			return false, fmt.Errorf("%w: message %s is not a poll", ErrInvalidOperation, messageID)
		}
		if optionIndex < 0 || optionIndex >= len(m.PollInfo.Options) {
			return false, fmt.Errorf("%w: poll option %d out of range", ErrInvalidOperation, optionIndex)
		}
		if m.PollInfo.VoteOf(userID) == optionIndex {
			return false, nil
		}
		for i := range m.PollInfo.Options {
			m.PollInfo.Options[i].Voters.Remove(userID)
		}
		opt := &m.PollInfo.Options[optionIndex]
		if opt.Voters == nil {
			opt.Voters = model.NewSet()
		}
		opt.Voters.Add(userID)
		return true, nil
	})
}

// SoftDeleteForUser скрывает сообщение только для userID; данные остаются в логе.
func (s *MessageStore) SoftDeleteForUser(conversationID, messageID, userID string) error {
	return s.mutate("SoftDeleteForUser", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.DeleteFor == nil {
			m.DeleteFor = model.NewSet()
		}
		return m.DeleteFor.Add(userID), nil
	})
}

// DeleteForEveryone превращает сообщение в надгробие: тело стирается, id/время/отправитель остаются.
func (s *MessageStore) DeleteForEveryone(conversationID, messageID string) error {
	return s.mutate("DeleteForEveryone", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.DeleteForEveryone {
			return false, nil
		}
		*m = *scrub(m)
		return true, nil
	})
}

// EditContent разрешён только для текстовых сообщений.
func (s *MessageStore) EditContent(conversationID, messageID, content string, at time.Time) error {
	return s.mutate("EditContent", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.MessageType != model.MessageTypeText {
			return false, fmt.Errorf("%w: %s message %s is not editable", ErrInvalidOperation, m.MessageType, messageID)
		}
		if m.DeleteForEveryone {
			return false, fmt.Errorf("%w: message %s is deleted", ErrInvalidOperation, messageID)
		}
		m.Content = content
		m.IsEdited = true
		edited := at
		m.EditedAt = &edited
		return true, nil
	})
}

func (s *MessageStore) SetStatus(conversationID, messageID string, status model.MessageStatus) error {
	return s.mutate("SetStatus", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.Status == status {
			return false, nil
		}
		m.Status = status
		return true, nil
	})
}

func (s *MessageStore) SetPinned(conversationID, messageID string, pinned bool, by string, at time.Time) error {
	return s.mutate("SetPinned", conversationID, messageID, func(m *model.Message) (bool, error) {
		if pinned && m.DeleteForEveryone {
			return false, fmt.Errorf("%w: message %s is deleted", ErrInvalidOperation, messageID)
		}
		if !pinned {
			changed := m.IsPinned
			m.IsPinned, m.PinnedBy, m.PinnedAt = false, "", nil
			return changed, nil
		}
		t := at
		m.IsPinned, m.PinnedBy, m.PinnedAt = true, by, &t
		return true, nil
	})
}

func (s *MessageStore) SetBookmark(conversationID, messageID, userID string, on bool) error {
	return s.mutate("SetBookmark", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.BookmarkedBy == nil {
			m.BookmarkedBy = model.NewSet()
		}
		if on {
			return m.BookmarkedBy.Add(userID), nil
		}
		return m.BookmarkedBy.Remove(userID), nil
	})
}

func (s *MessageStore) SetMarkedUnread(conversationID, messageID, userID string, on bool) error {
	return s.mutate("SetMarkedUnread", conversationID, messageID, func(m *model.Message) (bool, error) {
		if m.MarkedUnreadBy == nil {
			m.MarkedUnreadBy = model.NewSet()
		}
		if on {
			return m.MarkedUnreadBy.Add(userID), nil
		}
		return m.MarkedUnreadBy.Remove(userID), nil
	})
}

// HideAllForUser помечает все сообщения чата удалёнными для userID (очистка чата).
func (s *MessageStore) HideAllForUser(conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[conversationID]
	if !ok {
		return report("HideAllForUser", fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID))
	}
	changed := false
	for _, m := range log {
		if m.DeleteFor == nil {
			m.DeleteFor = model.NewSet()
		}
		if m.DeleteFor.Add(userID) {
			changed = true
		}
	}
	if changed {
		s.bump(conversationID, "")
	}
	return nil
}

// Drop забывает лог чата целиком (чат удалён из ленты).
func (s *MessageStore) Drop(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[conversationID]; !ok {
		return
	}
	delete(s.logs, conversationID)
	s.bump(conversationID, "")
}

func (s *MessageStore) Get(conversationID, messageID string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.find(conversationID, messageID)
	if err != nil {
		return nil, fmt.Errorf("store.Get: %w", err)
	}
	return m.Clone(), nil
}

// Messages возвращает копию лога чата в порядке хранения.
func (s *MessageStore) Messages(conversationID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[conversationID]
	if !ok {
		return nil, fmt.Errorf("store.Messages: %w: conversation %s", ErrNotFound, conversationID)
	}
	out := make([]*model.Message, len(log))
	for i, m := range log {
		out[i] = m.Clone()
	}
	return out, nil
}

// Has сообщает, загружен ли лог чата.
func (s *MessageStore) Has(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.logs[conversationID]
	return ok
}

// Ensure создаёт пустой лог, чтобы точечные операции над новым чатом не давали NotFound.
func (s *MessageStore) Ensure(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[conversationID]; !ok {
		s.logs[conversationID] = nil
	}
}

func (s *MessageStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

func (s *MessageStore) Subscribe() (<-chan Change, func()) {
	return s.n.subscribe()
}

func (s *MessageStore) find(conversationID, messageID string) (*model.Message, error) {
	log, ok := s.logs[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	for _, m := range log {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
}

func (s *MessageStore) mutate(op, conversationID, messageID string, fn func(m *model.Message) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.find(conversationID, messageID)
	if err != nil {
		return report(op, err)
	}
	changed, err := fn(m)
	if err != nil {
		return report(op, err)
	}
	if changed {
		s.bump(conversationID, messageID)
	}
	return nil
}

// bump вызывается под s.mu.
func (s *MessageStore) bump(conversationID, messageID string) {
	s.rev++
	s.n.publish(Change{Kind: ChangeMessage, Revision: s.rev, ConversationID: conversationID, MessageID: messageID})
}

func scrub(m *model.Message) *model.Message {
	out := m.Redacted()
	out.ConversationID = m.ConversationID
	out.ReplyMessageID = m.ReplyMessageID
	out.DeleteFor = m.DeleteFor.Clone()
	return out
}
