package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/overlay"
	"github.com/chatsync/internal/store"
)

type SendRequest struct {
	ConversationID string            `json:"conversation_id" validate:"required"`
	Content        string            `json:"content" validate:"max=4096"`
	MessageType    model.MessageType `json:"message_type" validate:"omitempty,oneof=text image video document voice"`
	FileInfo       *model.FileInfo   `json:"file_info"`
	ReplyMessageID string            `json:"reply_message_id"`
	IsSilent       bool              `json:"is_silent"`
}

type EditRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageID      string `json:"message_id" validate:"required"`
	Content        string `json:"content" validate:"required,max=4096"`
}

type DeleteRequest struct {
	ConversationID string   `json:"conversation_id" validate:"required"`
	MessageIDs     []string `json:"message_ids" validate:"required,min=1,dive,required"`
	ForEveryone    bool     `json:"for_everyone"`
}

type ReactionRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageID      string `json:"message_id" validate:"required"`
	Emoji          string `json:"emoji" validate:"required,max=32"`
}

type VoteRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageID      string `json:"message_id" validate:"required"`
	Option         int    `json:"option" validate:"min=0"`
}

type PollRequest struct {
	ConversationID string   `json:"conversation_id" validate:"required"`
	Question       string   `json:"question" validate:"required,max=300"`
	Options        []string `json:"options" validate:"required,min=2,max=12,dive,required,max=100"`
}

// Send добавляет сообщение в лог сразу (status pending) и пишет его в бэкенд.
// При ошибке записи сообщение остаётся в логе со статусом failed.
func (s *Service) Send(ctx context.Context, req SendRequest) (_ *model.Message, err error) {
	ctx, done := s.begin(ctx, "send_message", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.MessageType == "" {
		req.MessageType = model.MessageTypeText
	}
	content := strings.TrimSpace(req.Content)
	switch {
	case req.MessageType == model.MessageTypeText && content == "":
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	case req.MessageType != model.MessageTypeText && req.FileInfo == nil && content == "":
		return nil, fmt.Errorf("%w: %s message without attachment", ErrInvalidInput, req.MessageType)
	}
	conv, err := s.conversation(req.ConversationID)
	if err != nil {
		return nil, err
	}
	m := &model.Message{
		ID:             s.newID(),
		ConversationID: conv.ID,
		SenderID:       s.userID,
		Timestamp:      s.now(),
		MessageType:    req.MessageType,
		Content:        content,
		FileInfo:       req.FileInfo,
		ReplyMessageID: req.ReplyMessageID,
		IsSilent:       req.IsSilent,
	}
	return s.post(ctx, "send_message", m)
}

// CreatePoll отправляет сообщение-опрос тем же путём, что и Send.
func (s *Service) CreatePoll(ctx context.Context, req PollRequest) (_ *model.Message, err error) {
	ctx, done := s.begin(ctx, "create_poll", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	conv, err := s.conversation(req.ConversationID)
	if err != nil {
		return nil, err
	}
	poll := &model.PollInfo{Question: strings.TrimSpace(req.Question)}
	for _, text := range req.Options {
		poll.Options = append(poll.Options, model.PollOption{Text: strings.TrimSpace(text), Voters: model.NewSet()})
	}
	m := &model.Message{
		ID:             s.newID(),
		ConversationID: conv.ID,
		SenderID:       s.userID,
		Timestamp:      s.now(),
		MessageType:    model.MessageTypePoll,
		Content:        poll.Question,
		PollInfo:       poll,
	}
	return s.post(ctx, "create_poll", m)
}

// RetrySend повторяет запись сообщения со статусом failed.
func (s *Service) RetrySend(ctx context.Context, conversationID, messageID string) (_ *model.Message, err error) {
	ctx, done := s.begin(ctx, "retry_send", &err)
	defer done()
	m, err := s.msgs.Get(conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != s.userID {
		return nil, fmt.Errorf("%w: message %s belongs to another sender", ErrPermissionDenied, messageID)
	}
	if m.Status != model.MessageStatusFailed {
		return nil, fmt.Errorf("%w: message %s is %s", store.ErrInvalidOperation, messageID, m.Status)
	}
	return s.post(ctx, "retry_send", m)
}

func (s *Service) post(ctx context.Context, op string, m *model.Message) (*model.Message, error) {
	m.Status = model.MessageStatusPending
	s.msgs.Ensure(m.ConversationID)
	if err := s.msgs.AppendOrReplace(m.ConversationID, m); err != nil {
		return nil, err
	}
	last := model.LastMessage{
		Content:    m.Content,
		Type:       m.MessageType,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp,
	}
	if err := s.convs.SetLastMessage(m.ConversationID, last); err != nil {
		return nil, err
	}
	s.overlay.CancelReply(m.ConversationID)
	s.overlay.ClearDraft(m.ConversationID)

	wire := m.Clone()
	wire.Status = model.MessageStatusSent
	werr := s.remote(ctx, op, func(ctx context.Context) error {
		return s.writer.SendMessage(ctx, wire)
	})
	status := model.MessageStatusSent
	if werr != nil {
		status = model.MessageStatusFailed
	}
	var out *model.Message
	var serr error
	s.Locked(func() {
		if err := s.msgs.SetStatus(m.ConversationID, m.ID, status); err != nil && !errors.Is(err, store.ErrNotFound) {
			serr = err
			return
		}
		if out, serr = s.msgs.Get(m.ConversationID, m.ID); serr != nil {
			out, serr = m, nil
		}
	})
	if serr != nil {
		return nil, serr
	}
	return out, werr
}

// CanEdit: только своё текстовое сообщение, не удалённое у всех, в пределах окна правки.
func (s *Service) CanEdit(m *model.Message) error {
	if m.SenderID != s.userID {
		return fmt.Errorf("%w: only the author can edit", ErrPermissionDenied)
	}
	if m.MessageType != model.MessageTypeText || m.DeleteForEveryone {
		return fmt.Errorf("%w: message %s is not editable", store.ErrInvalidOperation, m.ID)
	}
	if s.now().Sub(m.Timestamp) > s.editWindow {
		return fmt.Errorf("%w: edit window of %s has passed", ErrPermissionDenied, s.editWindow)
	}
	return nil
}

// BeginEdit открывает черновик правки с текущим текстом; черновик ответа закрывается.
func (s *Service) BeginEdit(conversationID, messageID string) (_ *overlay.EditDraft, err error) {
	_, done := s.begin(context.Background(), "begin_edit", &err)
	defer done()
	if _, err := s.conversation(conversationID); err != nil {
		return nil, err
	}
	m, err := s.msgs.Get(conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.CanEdit(m); err != nil {
		return nil, err
	}
	s.overlay.StartEdit(conversationID, messageID, m.Content)
	return &overlay.EditDraft{MessageID: messageID, Content: m.Content}, nil
}

// BeginReply открывает черновик ответа на видимое сообщение; черновик правки закрывается.
func (s *Service) BeginReply(conversationID, messageID string) (err error) {
	_, done := s.begin(context.Background(), "begin_reply", &err)
	defer done()
	if _, err := s.conversation(conversationID); err != nil {
		return err
	}
	m, err := s.msgs.Get(conversationID, messageID)
	if err != nil {
		return err
	}
	if !m.VisibleTo(s.userID) || m.DeleteForEveryone {
		return fmt.Errorf("%w: cannot reply to message %s", store.ErrInvalidOperation, messageID)
	}
	s.overlay.StartReply(conversationID, messageID)
	return nil
}

func (s *Service) Edit(ctx context.Context, req EditRequest) (err error) {
	ctx, done := s.begin(ctx, "edit_message", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.conversation(req.ConversationID); err != nil {
		return err
	}
	m, err := s.msgs.Get(req.ConversationID, req.MessageID)
	if err != nil {
		return err
	}
	if err := s.CanEdit(m); err != nil {
		return err
	}
	at := s.now()
	if err := s.msgs.EditContent(req.ConversationID, req.MessageID, req.Content, at); err != nil {
		return err
	}
	s.overlay.CancelEdit(req.ConversationID)
	return s.remote(ctx, "edit_message", func(ctx context.Context) error {
		return s.writer.EditMessage(ctx, req.ConversationID, req.MessageID, req.Content, at)
	})
}

// Delete удаляет одно или несколько сообщений (для выделения). Наличие всех сообщений и,
// для удаления у всех, права проверяются до первой мутации. Режим выделения закрывается.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (err error) {
	op := "delete_for_me"
	if req.ForEveryone {
		op = "delete_for_everyone"
	}
	ctx, done := s.begin(ctx, op, &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	conv, err := s.conversation(req.ConversationID)
	if err != nil {
		return err
	}
	targets := make([]*model.Message, 0, len(req.MessageIDs))
	for _, id := range req.MessageIDs {
		m, err := s.msgs.Get(conv.ID, id)
		if err != nil {
			return err
		}
		targets = append(targets, m)
	}
	if req.ForEveryone {
		caps, err := s.capabilities(ctx, conv)
		if err != nil {
			return err
		}
		for _, m := range targets {
			if !caps.CanDeleteMessage(m.SenderID) {
				return fmt.Errorf("%w: cannot delete message %s", ErrPermissionDenied, m.ID)
			}
		}
	}

	for _, id := range req.MessageIDs {
		if req.ForEveryone {
			err = s.msgs.DeleteForEveryone(conv.ID, id)
		} else {
			err = s.msgs.SoftDeleteForUser(conv.ID, id, s.userID)
		}
		if err != nil {
			return err
		}
	}
	s.overlay.ExitSelectionMode(conv.ID)

	return s.remote(ctx, op, func(ctx context.Context) error {
		for _, id := range req.MessageIDs {
			var werr error
			if req.ForEveryone {
				werr = s.writer.DeleteForEveryone(ctx, conv.ID, id)
			} else {
				werr = s.writer.DeleteForMe(ctx, conv.ID, id, s.userID)
			}
			if werr != nil {
				return fmt.Errorf("message %s: %w", id, werr)
			}
		}
		return nil
	})
}

// React добавляет реакцию. Повтор той же реакции ничего не меняет; снятие: RemoveReaction.
func (s *Service) React(ctx context.Context, req ReactionRequest) (err error) {
	ctx, done := s.begin(ctx, "react", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.conversation(req.ConversationID); err != nil {
		return err
	}
	if err := s.msgs.ApplyReaction(req.ConversationID, req.MessageID, s.userID, req.Emoji); err != nil {
		return err
	}
	return s.remote(ctx, "react", func(ctx context.Context) error {
		return s.writer.AddReaction(ctx, req.ConversationID, req.MessageID, s.userID, req.Emoji)
	})
}

func (s *Service) RemoveReaction(ctx context.Context, req ReactionRequest) (err error) {
	ctx, done := s.begin(ctx, "remove_reaction", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.conversation(req.ConversationID); err != nil {
		return err
	}
	if err := s.msgs.RemoveReaction(req.ConversationID, req.MessageID, s.userID, req.Emoji); err != nil {
		return err
	}
	return s.remote(ctx, "remove_reaction", func(ctx context.Context) error {
		return s.writer.RemoveReaction(ctx, req.ConversationID, req.MessageID, s.userID, req.Emoji)
	})
}

// Vote переносит единственный голос пользователя на выбранный вариант.
func (s *Service) Vote(ctx context.Context, req VoteRequest) (err error) {
	ctx, done := s.begin(ctx, "vote", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.conversation(req.ConversationID); err != nil {
		return err
	}
	if err := s.msgs.ApplyVote(req.ConversationID, req.MessageID, s.userID, req.Option); err != nil {
		return err
	}
	return s.remote(ctx, "vote", func(ctx context.Context) error {
		return s.writer.Vote(ctx, req.ConversationID, req.MessageID, s.userID, req.Option)
	})
}

// SetPinned закрепляет или открепляет сообщение. В группе нужен canPin.
func (s *Service) SetPinned(ctx context.Context, conversationID, messageID string, pinned bool) (err error) {
	op := "pin_message"
	if !pinned {
		op = "unpin_message"
	}
	ctx, done := s.begin(ctx, op, &err)
	defer done()
	conv, err := s.conversation(conversationID)
	if err != nil {
		return err
	}
	if conv.ConversationType == model.ConversationTypeGroup {
		caps, err := s.capabilities(ctx, conv)
		if err != nil {
			return err
		}
		if !caps.CanPin {
			return fmt.Errorf("%w: cannot pin in %s", ErrPermissionDenied, conversationID)
		}
	}
	at := s.now()
	if err := s.msgs.SetPinned(conversationID, messageID, pinned, s.userID, at); err != nil {
		return err
	}
	return s.remote(ctx, op, func(ctx context.Context) error {
		return s.writer.SetPinned(ctx, conversationID, messageID, pinned, s.userID, at)
	})
}

func (s *Service) SetBookmark(ctx context.Context, conversationID, messageID string, on bool) (err error) {
	ctx, done := s.begin(ctx, "bookmark_message", &err)
	defer done()
	if _, err := s.conversation(conversationID); err != nil {
		return err
	}
	if err := s.msgs.SetBookmark(conversationID, messageID, s.userID, on); err != nil {
		return err
	}
	return s.remote(ctx, "bookmark_message", func(ctx context.Context) error {
		return s.writer.SetBookmark(ctx, conversationID, messageID, s.userID, on)
	})
}

func (s *Service) SetMarkedUnread(ctx context.Context, conversationID, messageID string, on bool) (err error) {
	ctx, done := s.begin(ctx, "mark_unread", &err)
	defer done()
	if _, err := s.conversation(conversationID); err != nil {
		return err
	}
	if err := s.msgs.SetMarkedUnread(conversationID, messageID, s.userID, on); err != nil {
		return err
	}
	return s.remote(ctx, "mark_unread", func(ctx context.Context) error {
		return s.writer.SetMarkedUnread(ctx, conversationID, messageID, s.userID, on)
	})
}
