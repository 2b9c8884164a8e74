package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/storage"
)

// SettingsService читает настройки пользователя в начале сессии и пишет их при изменении.
// Хранилищу отдаётся JSON-блоб целиком.
type SettingsService struct {
	store storage.SettingsStore
	mu    sync.Mutex
}

func NewSettingsService(store storage.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Load возвращает сохранённые настройки или значения по умолчанию.
func (s *SettingsService) Load(ctx context.Context, userID string) (model.UserSettings, error) {
	defer logger.DeferLogDuration("settings.Load", time.Now())()
	blob, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("settings.Load: %w", err)
	}
	settings := model.DefaultUserSettings()
	if blob == nil {
		return settings, nil
	}
	if err := json.Unmarshal(blob, &settings); err != nil {
		// Повреждённый блоб не ломает сессию: работаем на значениях по умолчанию.
		logger.Errorf("settings.Load user=%s: bad blob: %v", userID, err)
		return model.DefaultUserSettings(), nil
	}
	if settings.LockedDates == nil {
		settings.LockedDates = make(map[string][]string)
	}
	return settings, nil
}

func (s *SettingsService) Save(ctx context.Context, userID string, settings model.UserSettings) error {
	defer logger.DeferLogDuration("settings.Save", time.Now())()
	blob, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("settings.Save marshal: %w", err)
	}
	if err := s.store.PutSettings(ctx, userID, blob); err != nil {
		return fmt.Errorf("settings.Save: %w", err)
	}
	return nil
}

// Update: чтение, изменение и запись под одной блокировкой. Если fn вернул ошибку, ничего не пишется.
func (s *SettingsService) Update(ctx context.Context, userID string, fn func(*model.UserSettings) error) (model.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.Load(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}
	if err := fn(&settings); err != nil {
		return model.UserSettings{}, err
	}
	if err := s.Save(ctx, userID, settings); err != nil {
		return model.UserSettings{}, err
	}
	return settings, nil
}
