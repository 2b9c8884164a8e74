package command

import (
	"context"
	"time"

	"github.com/chatsync/internal/model"
)

// RemoteWriter: запись в бэкенд. Каждый метод либо применяет изменение целиком, либо
// возвращает ошибку; подтверждение приходит обратно через фид.
type RemoteWriter interface {
	SendMessage(ctx context.Context, m *model.Message) error
	EditMessage(ctx context.Context, conversationID, messageID, content string, at time.Time) error
	DeleteForMe(ctx context.Context, conversationID, messageID, userID string) error
	DeleteForEveryone(ctx context.Context, conversationID, messageID string) error
	AddReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error
	RemoveReaction(ctx context.Context, conversationID, messageID, userID, emoji string) error
	Vote(ctx context.Context, conversationID, messageID, userID string, option int) error
	SetPinned(ctx context.Context, conversationID, messageID string, pinned bool, by string, at time.Time) error
	SetBookmark(ctx context.Context, conversationID, messageID, userID string, on bool) error
	SetMarkedUnread(ctx context.Context, conversationID, messageID, userID string, on bool) error
	SetChatLocked(ctx context.Context, conversationID string, locked bool) error
	SetVanishMode(ctx context.Context, conversationID string, on bool) error
	SetTheme(ctx context.Context, conversationID string, theme *string, received bool) error
	ClearChat(ctx context.Context, conversationID, userID string, at time.Time) error
}

// GroupSource отдаёт GroupInfo чата; для чата без группы: nil, nil.
type GroupSource interface {
	Group(ctx context.Context, conversationID string) (*model.GroupInfo, error)
}

// SettingsStore: хранилище настроек пользователя (service.SettingsService).
type SettingsStore interface {
	Save(ctx context.Context, userID string, settings model.UserSettings) error
}
