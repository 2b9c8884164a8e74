package handler

import (
	"net/http"

	"github.com/chatsync/internal/config"
)

// ConfigHandler отдаёт публичные параметры конфигурации клиенту.
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

type clientConfig struct {
	Timezone          string `json:"timezone"`
	EditWindowSeconds int    `json:"edit_window_seconds"`
	DraftMaxAgeHours  int    `json:"draft_max_age_hours"`
}

// GetClientConfig: зона календаря проекций, окно правки и срок жизни черновиков (без авторизации).
func (h *ConfigHandler) GetClientConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, clientConfig{
		Timezone:          h.cfg.TimezoneName,
		EditWindowSeconds: int(h.cfg.EditWindow.Seconds()),
		DraftMaxAgeHours:  int(h.cfg.DraftMaxAge.Hours()),
	})
}
