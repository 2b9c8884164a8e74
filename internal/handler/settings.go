package handler

import (
	"net/http"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/engine"
)

type SettingsHandler struct {
	engines
}

func NewSettingsHandler(reg *engine.Registry) *SettingsHandler {
	return &SettingsHandler{engines{reg: reg}}
}

// Get отдаёт настройки без кодов.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Commands().Settings().Public())
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req command.SettingsUpdate
	if !decode(w, r, &req) {
		return
	}
	s, err := e.Commands().UpdateSettings(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Public())
}

func (h *SettingsHandler) ChangePasscode(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req command.PasscodeChange
	if !decode(w, r, &req) {
		return
	}
	if err := e.Commands().ChangePasscode(r.Context(), req); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
