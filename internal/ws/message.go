package ws

import "github.com/chatsync/internal/model"

type EventType string

// Исходящие: сервер сообщает о новой ревизии, клиент сам перезапрашивает проекцию.
const (
	EventConversationsChanged EventType = "conversations_changed"
	EventMessagesChanged      EventType = "messages_changed"
	EventGroupChanged         EventType = "group_changed"
	EventCommandOK            EventType = "command_ok"
	EventCommandFailed        EventType = "command_failed"
	EventError                EventType = "error"
)

// Входящие команды.
const (
	EventSendMessage     EventType = "send_message"
	EventEditMessage     EventType = "edit_message"
	EventDeleteMessage   EventType = "delete_message"
	EventReactionAdded   EventType = "reaction_added"
	EventReactionRemoved EventType = "reaction_removed"
	EventVote            EventType = "vote"
	EventTyping          EventType = "typing"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`

	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	// For multi-select delete
	MessageIDs  []string `json:"message_ids,omitempty"`
	ForEveryone bool     `json:"for_everyone,omitempty"`

	Content        string            `json:"content,omitempty"`
	MessageType    model.MessageType `json:"message_type,omitempty"`
	FileInfo       *model.FileInfo   `json:"file_info,omitempty"`
	ReplyMessageID string            `json:"reply_message_id,omitempty"`
	IsSilent       bool              `json:"is_silent,omitempty"`

	Emoji  string `json:"emoji,omitempty"`
	Option *int   `json:"option,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type ConversationsChangedPayload struct {
	Revision uint64 `json:"revision"`
}

type MessagesChangedPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	Revision       uint64 `json:"revision"`
}

type GroupChangedPayload struct {
	ConversationID string `json:"conversation_id"`
}

// CommandResultPayload отвечает на входящую команду; Error пуст при успехе.
type CommandResultPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Op        string `json:"op"`
	Error     string `json:"error,omitempty"`
	Result    any    `json:"result,omitempty"`
}

// coalesceKey: события с одинаковым ключом заменяют друг друга. Пустой ключ: событие не склеивается.
func (m OutgoingMessage) coalesceKey() string {
	switch p := m.Payload.(type) {
	case ConversationsChangedPayload:
		return string(m.Type)
	case MessagesChangedPayload:
		return string(m.Type) + ":" + p.ConversationID
	case GroupChangedPayload:
		return string(m.Type) + ":" + p.ConversationID
	default:
		return ""
	}
}

// coalesce оставляет по ключу последнее событие на месте первого вхождения, порядок остальных
// не меняется. batch не изменяется.
func coalesce(batch []OutgoingMessage) []OutgoingMessage {
	out := make([]OutgoingMessage, 0, len(batch))
	pos := make(map[string]int, len(batch))
	for _, m := range batch {
		k := m.coalesceKey()
		if k == "" {
			out = append(out, m)
			continue
		}
		if i, ok := pos[k]; ok {
			out[i] = m
			continue
		}
		pos[k] = len(out)
		out = append(out, m)
	}
	return out
}
