package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/engine"
	"github.com/chatsync/internal/overlay"
)

// OverlayHandler отдаёт клиентское состояние чата: выделение, черновики ответа/правки и текста.
// На бэкенд отсюда ничего не пишется.
type OverlayHandler struct {
	engines
}

func NewOverlayHandler(reg *engine.Registry) *OverlayHandler {
	return &OverlayHandler{engines{reg: reg}}
}

type idsRequest struct {
	MessageIDs []string `json:"message_ids"`
}

func (h *OverlayHandler) Selection(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Overlay().Selection(chi.URLParam(r, "id")))
}

func (h *OverlayHandler) EnterSelection(w http.ResponseWriter, r *http.Request) {
	h.selection(w, r, (*overlay.Overlay).EnterSelectionMode)
}

// ToggleSelection: карусель передаётся всеми своими id и выделяется целиком.
func (h *OverlayHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	h.selection(w, r, (*overlay.Overlay).ToggleSelection)
}

func (h *OverlayHandler) selection(w http.ResponseWriter, r *http.Request, fn func(*overlay.Overlay, string, []string) overlay.Selection) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req idsRequest
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := e.Conversations().Get(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fn(e.Overlay(), id, req.MessageIDs))
}

func (h *OverlayHandler) ExitSelection(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Overlay().ExitSelectionMode(chi.URLParam(r, "id")))
}

type composeResponse struct {
	Reply *overlay.ReplyDraft `json:"reply"`
	Edit  *overlay.EditDraft  `json:"edit"`
	Draft string              `json:"draft,omitempty"`
}

func (h *OverlayHandler) Compose(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	reply, edit := e.Overlay().Compose(id)
	resp := composeResponse{Reply: reply, Edit: edit}
	if d, ok := e.Overlay().Draft(id); ok {
		resp.Draft = d.Content
	}
	writeJSON(w, http.StatusOK, resp)
}

type messageRef struct {
	MessageID string `json:"message_id"`
}

func (h *OverlayHandler) StartReply(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req messageRef
	if !decode(w, r, &req) {
		return
	}
	if err := e.Commands().BeginReply(chi.URLParam(r, "id"), req.MessageID); err != nil {
		writeErr(w, err)
		return
	}
	h.Compose(w, r)
}

func (h *OverlayHandler) StartEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req messageRef
	if !decode(w, r, &req) {
		return
	}
	if _, err := e.Commands().BeginEdit(chi.URLParam(r, "id"), req.MessageID); err != nil {
		writeErr(w, err)
		return
	}
	h.Compose(w, r)
}

func (h *OverlayHandler) CancelReply(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	e.Overlay().CancelReply(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *OverlayHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	e.Overlay().CancelEdit(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *OverlayHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := e.Conversations().Get(id); err != nil {
		writeErr(w, err)
		return
	}
	e.Overlay().SaveDraft(id, req.Content, e.Commands().Now())
	w.WriteHeader(http.StatusNoContent)
}

func (h *OverlayHandler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	e.Overlay().ClearDraft(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Drafts: все текстовые черновики пользователя по id чата.
func (h *OverlayHandler) Drafts(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Overlay().Drafts())
}
