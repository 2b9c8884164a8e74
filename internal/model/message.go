package model

import (
	"regexp"
	"time"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeDocument MessageType = "document"
	MessageTypeVoice    MessageType = "voice"
	MessageTypePoll     MessageType = "poll"
	MessageTypeSecurity MessageType = "security"
)

// IsMedia: изображения и видео, которые группируются в карусель.
func (t MessageType) IsMedia() bool {
	return t == MessageTypeImage || t == MessageTypeVideo
}

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"

	// Локальные статусы оптимистичной отправки, на сервер не пишутся.
	MessageStatusPending MessageStatus = "pending"
	MessageStatusFailed  MessageStatus = "failed"
)

var urlPattern = regexp.MustCompile(`(https?://[^\s]+)`)

type FileInfo struct {
	Name string `json:"name"`
	Size string `json:"size,omitempty"`
	URL  string `json:"url"`
}

type PollOption struct {
	Text   string `json:"text"`
	Voters Set    `json:"voters"`
}

type PollInfo struct {
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
}

type Message struct {
	ID                string         `json:"id"`
	ConversationID    string         `json:"conversation_id"`
	SenderID          string         `json:"sender_id"`
	SenderName        string         `json:"sender_name,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
	MessageType       MessageType    `json:"message_type"`
	Content           string         `json:"content"`
	FileInfo          *FileInfo      `json:"file_info,omitempty"`
	Status            MessageStatus  `json:"status"`
	IsSeen            bool           `json:"is_seen"`
	Reactions         map[string]Set `json:"reactions,omitempty"`
	DeleteFor         Set            `json:"delete_for,omitempty"`
	DeleteForEveryone bool           `json:"delete_for_everyone"`
	IsEdited          bool           `json:"is_edited"`
	EditedAt          *time.Time     `json:"edited_at,omitempty"`
	ReplyMessageID    string         `json:"reply_message_id,omitempty"`
	PollInfo          *PollInfo      `json:"poll_info,omitempty"`

	IsSilent       bool       `json:"is_silent,omitempty"`
	IsPinned       bool       `json:"is_pinned,omitempty"`
	PinnedBy       string     `json:"pinned_by,omitempty"`
	PinnedAt       *time.Time `json:"pinned_at,omitempty"`
	BookmarkedBy   Set        `json:"bookmarked_by,omitempty"`
	MarkedUnreadBy Set        `json:"marked_unread_by,omitempty"`
}

// Clone возвращает глубокую копию: потребители снимков не должны видеть изменения стора.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.FileInfo != nil {
		fi := *m.FileInfo
		c.FileInfo = &fi
	}
	if m.Reactions != nil {
		c.Reactions = make(map[string]Set, len(m.Reactions))
		for emoji, users := range m.Reactions {
			c.Reactions[emoji] = users.Clone()
		}
	}
	c.DeleteFor = m.DeleteFor.Clone()
	c.BookmarkedBy = m.BookmarkedBy.Clone()
	c.MarkedUnreadBy = m.MarkedUnreadBy.Clone()
	if m.PollInfo != nil {
		p := PollInfo{Question: m.PollInfo.Question, Options: make([]PollOption, len(m.PollInfo.Options))}
		for i, opt := range m.PollInfo.Options {
			p.Options[i] = PollOption{Text: opt.Text, Voters: opt.Voters.Clone()}
		}
		c.PollInfo = &p
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	if m.PinnedAt != nil {
		t := *m.PinnedAt
		c.PinnedAt = &t
	}
	return &c
}

// VisibleTo: false, если пользователь удалил сообщение у себя.
func (m *Message) VisibleTo(userID string) bool {
	return !m.DeleteFor.Has(userID)
}

// Redacted возвращает копию без тела. Для удалённых у всех сообщений остаются только
// id, отправитель и время, чтобы список не схлопывался при прокрутке.
func (m *Message) Redacted() *Message {
	return &Message{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		SenderID:          m.SenderID,
		SenderName:        m.SenderName,
		Timestamp:         m.Timestamp,
		MessageType:       m.MessageType,
		Status:            m.Status,
		IsSeen:            m.IsSeen,
		DeleteForEveryone: true,
	}
}

// HasURL проверяет текстовое сообщение на наличие ссылки.
func (m *Message) HasURL() bool {
	return m.MessageType == MessageTypeText && urlPattern.MatchString(m.Content)
}

// VoteOf возвращает индекс варианта, за который голосовал пользователь, или -1.
func (p *PollInfo) VoteOf(userID string) int {
	if p == nil {
		return -1
	}
	for i, opt := range p.Options {
		if opt.Voters.Has(userID) {
			return i
		}
	}
	return -1
}
