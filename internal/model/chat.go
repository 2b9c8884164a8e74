package model

import "time"

type ConversationType string

const (
	ConversationTypeIndividual ConversationType = "INDIVIDUAL"
	ConversationTypeGroup      ConversationType = "GROUP"
)

// LastMessage: краткая сводка последнего сообщения для списка чатов.
type LastMessage struct {
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type Conversation struct {
	ID               string           `json:"id"`
	ConversationType ConversationType `json:"conversation_type"`
	Participants     Set              `json:"participants"`
	Name             string           `json:"name"`
	ProfileImage     string           `json:"profile_image,omitempty"`
	LastMessage      LastMessage      `json:"last_message"`
	UnreadCount      int              `json:"unread_count"`
	IsPinned         bool             `json:"is_pinned"`
	IsLocked         bool             `json:"is_locked"`
	IsVanishMode     bool             `json:"is_vanish_mode"`
	IsMuted          bool             `json:"is_muted,omitempty"`
	Theme            *string          `json:"theme,omitempty"`
	ReceivedTheme    *string          `json:"received_theme,omitempty"`
}

// LastMessageAt: время последней активности, по нему сортируется список чатов.
func (c *Conversation) LastMessageAt() time.Time {
	return c.LastMessage.Timestamp
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Participants = c.Participants.Clone()
	if c.Theme != nil {
		t := *c.Theme
		out.Theme = &t
	}
	if c.ReceivedTheme != nil {
		t := *c.ReceivedTheme
		out.ReceivedTheme = &t
	}
	return &out
}
