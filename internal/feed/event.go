// Package feed: лента изменений бэкенда. Слушает LISTEN/NOTIFY, по каждому уведомлению
// перечитывает документ целиком и передаёт его диспетчеру. Так до сторов всегда доходит
// последнее состояние документа, а не промежуточный дифф.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/chatsync/internal/model"
)

type Kind string

const (
	KindConversation Kind = "conversation"
	KindMessage      Kind = "message"
	KindGroup        Kind = "group"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpRemove Op = "remove"
)

// Notification: полезная нагрузка pg_notify из триггера chatsync_notify.
type Notification struct {
	Table          string `json:"table"`
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Op             string `json:"op"`
}

// Event: документ, готовый к применению в сторах.
type Event struct {
	Kind           Kind
	Op             Op
	ID             string
	ConversationID string
	Conversation   *model.Conversation
	Message        *model.Message
	Group          *model.GroupInfo
}

var tableKinds = map[string]Kind{
	"conversations": KindConversation,
	"messages":      KindMessage,
	"group_info":    KindGroup,
}

// DecodeNotification разбирает payload уведомления.
func DecodeNotification(payload string) (Notification, Kind, Op, error) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, "", "", fmt.Errorf("decode notification: %w", err)
	}
	kind, ok := tableKinds[n.Table]
	if !ok {
		return n, "", "", fmt.Errorf("decode notification: unknown table %q", n.Table)
	}
	if n.ID == "" {
		return n, "", "", fmt.Errorf("decode notification: empty id")
	}
	switch n.Op {
	case "INSERT", "UPDATE":
		return n, kind, OpUpsert, nil
	case "DELETE":
		return n, kind, OpRemove, nil
	default:
		return n, "", "", fmt.Errorf("decode notification: unknown op %q", n.Op)
	}
}
