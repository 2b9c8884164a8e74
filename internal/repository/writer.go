package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/model"
)

var _ command.RemoteWriter = (*Writer)(nil)

// Writer: удалённая запись команд в документное хранилище. Каждая операция одна
// транзакция над полным документом; триггеры таблиц рассылают изменение в ленту.
type Writer struct {
	pool  *pgxpool.Pool
	convs *ConversationRepository
	msgs  *MessageRepository
}

func NewWriter(pool *pgxpool.Pool, convs *ConversationRepository, msgs *MessageRepository) *Writer {
	return &Writer{pool: pool, convs: convs, msgs: msgs}
}

// SendMessage пишет сообщение и сводку чата в одной транзакции.
func (w *Writer) SendMessage(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("writer.SendMessage", time.Now())()
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if err := upsertMessage(ctx, tx, m); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return mutateConversation(ctx, tx, m.ConversationID, func(c *model.Conversation) error {
			if m.Timestamp.Before(c.LastMessageAt()) {
				return nil
			}
			c.LastMessage = model.LastMessage{
				Content:    m.Content,
				Type:       m.MessageType,
				SenderID:   m.SenderID,
				SenderName: m.SenderName,
				Timestamp:  m.Timestamp,
			}
			for id := range c.Participants {
				if id != m.SenderID && !m.IsSilent {
					c.UnreadCount++
					break
				}
			}
			return nil
		})
	})
}

func (w *Writer) EditMessage(ctx context.Context, conversationID, messageID, content string, at time.Time) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		if m.DeleteForEveryone || m.MessageType != model.MessageTypeText {
			return fmt.Errorf("message %s is not editable", messageID)
		}
		m.Content = content
		m.IsEdited = true
		t := at
		m.EditedAt = &t
		return nil
	})
}

func (w *Writer) DeleteForMe(ctx context.Context, conversationID, messageID, userID string) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		if m.DeleteFor == nil {
			m.DeleteFor = model.NewSet()
		}
		m.DeleteFor.Add(userID)
		return nil
	})
}

func (w *Writer) DeleteForEveryone(ctx context.Context, conversationID, messageID string) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		t := m.Redacted()
		t.ReplyMessageID = m.ReplyMessageID
		t.DeleteFor = m.DeleteFor
		*m = *t
		return nil
	})
}

func (w *Writer) AddReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		if m.DeleteForEveryone {
			return fmt.Errorf("message %s is deleted", messageID)
		}
		if m.Reactions == nil {
			m.Reactions = make(map[string]model.Set)
		}
		if m.Reactions[emoji] == nil {
			m.Reactions[emoji] = model.NewSet()
		}
		m.Reactions[emoji].Add(userID)
		return nil
	})
}

func (w *Writer) RemoveReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		users := m.Reactions[emoji]
		users.Remove(userID)
		if users.Len() == 0 {
			delete(m.Reactions, emoji)
		}
		return nil
	})
}

func (w *Writer) Vote(ctx context.Context, conversationID, messageID, userID string, option int) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		if m.PollInfo == nil || option < 0 || option >= len(m.PollInfo.Options) {
			return fmt.Errorf("message %s: no poll option %d", messageID, option)
		}
		for i := range m.PollInfo.Options {
			m.PollInfo.Options[i].Voters.Remove(userID)
		}
		if m.PollInfo.Options[option].Voters == nil {
			m.PollInfo.Options[option].Voters = model.NewSet()
		}
		m.PollInfo.Options[option].Voters.Add(userID)
		return nil
	})
}

func (w *Writer) SetPinned(ctx context.Context, conversationID, messageID string, pinned bool, by string, at time.Time) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		if !pinned {
			m.IsPinned, m.PinnedBy, m.PinnedAt = false, "", nil
			return nil
		}
		t := at
		m.IsPinned, m.PinnedBy, m.PinnedAt = true, by, &t
		return nil
	})
}

func (w *Writer) SetBookmark(ctx context.Context, conversationID, messageID, userID string, on bool) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		m.BookmarkedBy = toggle(m.BookmarkedBy, userID, on)
		return nil
	})
}

func (w *Writer) SetMarkedUnread(ctx context.Context, conversationID, messageID, userID string, on bool) error {
	return w.msgs.Mutate(ctx, conversationID, messageID, func(m *model.Message) error {
		m.MarkedUnreadBy = toggle(m.MarkedUnreadBy, userID, on)
		return nil
	})
}

func (w *Writer) SetChatLocked(ctx context.Context, conversationID string, locked bool) error {
	return w.convs.Mutate(ctx, conversationID, func(c *model.Conversation) error {
		c.IsLocked = locked
		return nil
	})
}

func (w *Writer) SetVanishMode(ctx context.Context, conversationID string, on bool) error {
	return w.convs.Mutate(ctx, conversationID, func(c *model.Conversation) error {
		c.IsVanishMode = on
		return nil
	})
}

func (w *Writer) SetTheme(ctx context.Context, conversationID string, theme *string, received bool) error {
	return w.convs.Mutate(ctx, conversationID, func(c *model.Conversation) error {
		if received {
			c.ReceivedTheme = theme
		} else {
			c.Theme = theme
		}
		return nil
	})
}

// ClearChat скрывает все сообщения чата для userID и обнуляет сводку.
func (w *Writer) ClearChat(ctx context.Context, conversationID, userID string, at time.Time) error {
	defer logger.DeferLogDuration("writer.ClearChat", time.Now())()
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if err := hideAllForUser(ctx, tx, conversationID, userID); err != nil {
			return fmt.Errorf("hide messages: %w", err)
		}
		return mutateConversation(ctx, tx, conversationID, func(c *model.Conversation) error {
			c.LastMessage = model.LastMessage{Type: model.MessageTypeText, Timestamp: at}
			c.UnreadCount = 0
			return nil
		})
	})
}

func toggle(s model.Set, id string, on bool) model.Set {
	if s == nil {
		s = model.NewSet()
	}
	if on {
		s.Add(id)
	} else {
		s.Remove(id)
	}
	return s
}
