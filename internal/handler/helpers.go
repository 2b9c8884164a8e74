package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/engine"
	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/middleware"
	"github.com/chatsync/internal/overlay"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/store"
)

const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor сопоставляет ошибки сторов и команд HTTP-статусам.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidOperation), errors.Is(err, command.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, command.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, overlay.ErrPasscodeRequired), errors.Is(err, overlay.ErrPasscodeMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, command.ErrRemoteWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeErr отдаёт ошибку команды. Текст внутренних ошибок наружу не уходит.
func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("handler: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// decode читает JSON-тело; пустое тело допустимо и оставляет v как есть.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	return true
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// engines: общий доступ к движку текущего пользователя.
type engines struct {
	reg *engine.Registry
}

func (h engines) engineFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	e, err := h.reg.Get(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return e, true
}
