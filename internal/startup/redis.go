package startup

import (
	"context"
	"time"

	redisstorage "github.com/chatsync/internal/storage/redis"
)

// ConnectRedis подключает хранилище настроек в Redis с теми же повторами, что и ConnectDB.
func ConnectRedis(ctx context.Context, redisURL string, maxWait time.Duration, logPrefix string) (*redisstorage.Client, error) {
	return retry(ctx, "redis connect", maxWait, logPrefix, func(ctx context.Context) (*redisstorage.Client, error) {
		connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return redisstorage.New(connCtx, redisURL)
	})
}
