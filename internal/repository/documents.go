package repository

import (
	"context"

	"github.com/chatsync/internal/model"
)

// Documents отдаёт полные документы по ключам из уведомлений ленты и для начальной загрузки.
type Documents struct {
	Conversations *ConversationRepository
	Messages      *MessageRepository
	Groups        *GroupRepository
}

func (d *Documents) Conversation(ctx context.Context, id string) (*model.Conversation, error) {
	return d.Conversations.Get(ctx, id)
}

func (d *Documents) Message(ctx context.Context, conversationID, id string) (*model.Message, error) {
	return d.Messages.Get(ctx, conversationID, id)
}

func (d *Documents) Group(ctx context.Context, conversationID string) (*model.GroupInfo, error) {
	return d.Groups.Get(ctx, conversationID)
}

func (d *Documents) ConversationsFor(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return d.Conversations.ListForUser(ctx, userID)
}

func (d *Documents) MessagesOf(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	return d.Messages.ListByConversation(ctx, conversationID, limit)
}
