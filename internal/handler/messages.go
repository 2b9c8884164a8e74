package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/engine"
	"github.com/chatsync/internal/model"
)

// failedWrite: ответ на команду, чья запись в бэкенд не прошла. Локальное состояние уже изменено.
type failedWrite struct {
	Error   string         `json:"error"`
	Message *model.Message `json:"message,omitempty"`
}

type MessageHandler struct {
	engines
}

func NewMessageHandler(reg *engine.Registry) *MessageHandler {
	return &MessageHandler{engines{reg: reg}}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req command.SendRequest
	if !decode(w, r, &req) {
		return
	}
	req.ConversationID = chi.URLParam(r, "id")
	m, err := e.Commands().Send(r.Context(), req)
	if err != nil && m == nil {
		writeErr(w, err)
		return
	}
	if err != nil {
		// сообщение осталось в ленте со статусом failed, его можно переотправить
		writeJSON(w, statusFor(err), failedWrite{Error: err.Error(), Message: m})
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MessageHandler) Retry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	m, err := e.Commands().RetrySend(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "mid"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MessageHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req command.PollRequest
	if !decode(w, r, &req) {
		return
	}
	req.ConversationID = chi.URLParam(r, "id")
	m, err := e.Commands().CreatePoll(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if !decode(w, r, &req) {
		return
	}
	err := e.Commands().Edit(r.Context(), command.EditRequest{
		ConversationID: chi.URLParam(r, "id"),
		MessageID:      chi.URLParam(r, "mid"),
		Content:        req.Content,
	})
	h.done(w, r, e, err)
}

// Delete удаляет одно сообщение; ?for_everyone=true удаляет у всех.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	err := e.Commands().Delete(r.Context(), command.DeleteRequest{
		ConversationID: chi.URLParam(r, "id"),
		MessageIDs:     []string{chi.URLParam(r, "mid")},
		ForEveryone:    queryBool(r, "for_everyone"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMany: удаление выделенных сообщений.
func (h *MessageHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req command.DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	req.ConversationID = chi.URLParam(r, "id")
	if err := e.Commands().Delete(r.Context(), req); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type emojiRequest struct {
	Emoji string `json:"emoji"`
}

func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req emojiRequest
	if !decode(w, r, &req) {
		return
	}
	err := e.Commands().React(r.Context(), command.ReactionRequest{
		ConversationID: chi.URLParam(r, "id"),
		MessageID:      chi.URLParam(r, "mid"),
		Emoji:          req.Emoji,
	})
	h.done(w, r, e, err)
}

func (h *MessageHandler) Unreact(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	err := e.Commands().RemoveReaction(r.Context(), command.ReactionRequest{
		ConversationID: chi.URLParam(r, "id"),
		MessageID:      chi.URLParam(r, "mid"),
		Emoji:          chi.URLParam(r, "emoji"),
	})
	h.done(w, r, e, err)
}

type voteRequest struct {
	Option *int `json:"option"`
}

func (h *MessageHandler) Vote(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Option == nil {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}
	err := e.Commands().Vote(r.Context(), command.VoteRequest{
		ConversationID: chi.URLParam(r, "id"),
		MessageID:      chi.URLParam(r, "mid"),
		Option:         *req.Option,
	})
	h.done(w, r, e, err)
}

// Flag возвращает обработчик PUT/DELETE для флагов сообщения: pin, bookmark, unread.
func (h *MessageHandler) Flag(flag string, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := h.engineFor(w, r)
		if !ok {
			return
		}
		conv, mid := chi.URLParam(r, "id"), chi.URLParam(r, "mid")
		cmd := e.Commands()
		var err error
		switch flag {
		case "pin":
			err = cmd.SetPinned(r.Context(), conv, mid, on)
		case "bookmark":
			err = cmd.SetBookmark(r.Context(), conv, mid, on)
		case "unread":
			err = cmd.SetMarkedUnread(r.Context(), conv, mid, on)
		default:
			writeError(w, http.StatusNotFound, "unknown flag")
			return
		}
		h.done(w, r, e, err)
	}
}

// done отдаёт актуальное сообщение после команды; 502 тоже несёт сообщение.
func (h *MessageHandler) done(w http.ResponseWriter, r *http.Request, e *engine.Engine, err error) {
	m, gerr := e.Messages().Get(chi.URLParam(r, "id"), chi.URLParam(r, "mid"))
	switch {
	case err != nil && (gerr != nil || statusFor(err) != http.StatusBadGateway):
		writeErr(w, err)
	case err != nil:
		writeJSON(w, http.StatusBadGateway, failedWrite{Error: err.Error(), Message: m})
	case gerr != nil:
		writeErr(w, gerr)
	default:
		writeJSON(w, http.StatusOK, m)
	}
}
