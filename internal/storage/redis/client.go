package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chatsync:settings:"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// GetSettings читает блоб по ключу chatsync:settings:{user_id}. Настройки без TTL.
func (c *Client) GetSettings(ctx context.Context, userID string) ([]byte, error) {
	val, err := c.cli.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis.GetSettings: %w", err)
	}
	return val, nil
}

func (c *Client) PutSettings(ctx context.Context, userID string, blob []byte) error {
	if err := c.cli.Set(ctx, keyPrefix+userID, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis.PutSettings: %w", err)
	}
	return nil
}

func (c *Client) DeleteSettings(ctx context.Context, userID string) error {
	if err := c.cli.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis.DeleteSettings: %w", err)
	}
	return nil
}
