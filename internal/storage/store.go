package storage

import "context"

// SettingsStore: key-value хранилище настроек пользователя. Значение непрозрачный JSON-блоб,
// структура хранилищу не важна. Отсутствующий ключ: (nil, nil).
// Реализации: redis.Client, disk.Client, memory.Client (по умолчанию и в тестах),
// cached.Client (память поверх любого из них).
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) ([]byte, error)
	PutSettings(ctx context.Context, userID string, blob []byte) error
	DeleteSettings(ctx context.Context, userID string) error
	Close() error
}
