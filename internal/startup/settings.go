package startup

import (
	"context"
	"time"

	"github.com/chatsync/internal/config"
	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/storage"
	"github.com/chatsync/internal/storage/cached"
	"github.com/chatsync/internal/storage/disk"
	"github.com/chatsync/internal/storage/memory"
)

// OpenSettingsStore выбирает хранилище настроек по cfg.Settings.Backend.
// Долговременные бэкенды (redis, disk) оборачиваются кэшем в памяти.
func OpenSettingsStore(ctx context.Context, cfg *config.Config) (storage.SettingsStore, error) {
	switch cfg.Settings.Backend {
	case config.SettingsRedis:
		logger.Infof("settings: redis %s", cfg.Redis.URL)
		client, err := ConnectRedis(ctx, cfg.Redis.URL, 60*time.Second, "settings: ")
		if err != nil {
			return nil, err
		}
		return cached.New(client), nil
	case config.SettingsDisk:
		logger.Infof("settings: disk %s", cfg.Settings.DiskDir)
		return cached.New(disk.New(cfg.Settings.DiskDir, cfg.Settings.DiskCacheBytes)), nil
	default:
		logger.Info("settings: memory (не переживает рестарт)")
		return memory.New(), nil
	}
}
