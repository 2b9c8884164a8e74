package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/engine"
	"github.com/chatsync/internal/projector"
)

type ChatHandler struct {
	engines
}

func NewChatHandler(reg *engine.Registry) *ChatHandler {
	return &ChatHandler{engines{reg: reg}}
}

type chatListResponse struct {
	Revision   uint64              `json:"revision"`
	LockedView bool                `json:"locked_view"`
	Chats      []projector.ChatRow `json:"chats"`
}

type messageListResponse struct {
	Revision uint64           `json:"revision"`
	Items    []projector.Item `json:"items"`
}

type passcodeRequest struct {
	Passcode string `json:"passcode"`
}

type toggleResponse struct {
	On bool `json:"on"`
}

// List отдаёт проекцию списка чатов, ?filter=all|chat|group|notifications&q=.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	rev := e.Conversations().Revision()
	rows := e.ChatList(projector.ParseChatFilter(q.Get("filter")), q.Get("q"))
	writeJSON(w, http.StatusOK, chatListResponse{Revision: rev, LockedView: e.Overlay().LockedView(), Chats: rows})
}

// Messages отдаёт проекцию ленты чата, ?filter=all|image|video|document|link&q=.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	rev := e.Messages().Revision()
	items, err := e.MessageList(chi.URLParam(r, "id"), projector.ParseMessageFilter(q.Get("filter")), q.Get("q"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageListResponse{Revision: rev, Items: items})
}

// Media: медиа чата по корзинам today/this_week/earlier.
func (h *ChatHandler) Media(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	filter := projector.ParseMessageFilter(r.URL.Query().Get("filter"))
	if filter == projector.MessageFilterAll {
		filter = projector.MessageFilterImage
	}
	groups, err := e.MediaGroups(chi.URLParam(r, "id"), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *ChatHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	caps, err := e.Permissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, caps)
}

func (h *ChatHandler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(e *engine.Engine, req passcodeRequest) (bool, error) {
		return e.Commands().ToggleChatLock(r.Context(), chi.URLParam(r, "id"), req.Passcode)
	})
}

func (h *ChatHandler) ToggleVanish(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(e *engine.Engine, req passcodeRequest) (bool, error) {
		return e.Commands().ToggleVanishMode(r.Context(), chi.URLParam(r, "id"), req.Passcode)
	})
}

// ToggleLockedView: вход в режим скрытых чатов по коду, выход без кода.
func (h *ChatHandler) ToggleLockedView(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(e *engine.Engine, req passcodeRequest) (bool, error) {
		return e.Commands().ToggleLockedView(req.Passcode)
	})
}

func (h *ChatHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(*engine.Engine, passcodeRequest) (bool, error)) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req passcodeRequest
	if !decode(w, r, &req) {
		return
	}
	on, err := fn(e, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{On: on})
}

func (h *ChatHandler) DailyLock(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req command.DailyLockRequest
	if !decode(w, r, &req) {
		return
	}
	req.ConversationID = chi.URLParam(r, "id")
	locked, err := e.Commands().ToggleDailyLock(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{On: locked})
}

func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	if err := e.Commands().ClearChat(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type themeRequest struct {
	Theme    *string `json:"theme"`
	Received bool    `json:"received"`
}

func (h *ChatHandler) Theme(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req themeRequest
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	err := e.Commands().UpdateTheme(r.Context(), command.ThemeRequest{ConversationID: id, Theme: req.Theme}, req.Received)
	if err != nil {
		writeErr(w, err)
		return
	}
	c, err := e.Conversations().Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Leave: пользователь закрыл чат, дни, открытые на сессию, и выделение сбрасываются.
func (h *ChatHandler) Leave(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	e.Leave(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
