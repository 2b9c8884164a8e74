package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/logger"
)

const (
	firstBackoff = 2 * time.Second
	maxBackoff   = 30 * time.Second
)

// retry повторяет connect с удвоением паузы, пока не выйдет maxWait или не отменится ctx.
// logPrefix добавляется к сообщениям лога (например "inspect: ").
func retry[T any](ctx context.Context, what string, maxWait time.Duration, logPrefix string, connect func(context.Context) (T, error)) (T, error) {
	deadline := time.Now().Add(maxWait)
	backoff := firstBackoff
	for {
		v, err := connect(ctx)
		if err == nil {
			return v, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			var zero T
			return zero, fmt.Errorf("%s: gave up after %v: %w", what, maxWait, err)
		}
		logger.Errorf("%s%s failed, retry in %v: %v", logPrefix, what, backoff, err)
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// ConnectDB открывает пул и проверяет его пингом; Postgres может подниматься дольше сервиса.
func ConnectDB(ctx context.Context, poolCfg *pgxpool.Config, maxWait time.Duration, logPrefix string) (*pgxpool.Pool, error) {
	return retry(ctx, "db connect", maxWait, logPrefix, func(ctx context.Context) (*pgxpool.Pool, error) {
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(connCtx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(connCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
		return pool, nil
	})
}
