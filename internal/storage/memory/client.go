package memory

import (
	"context"
	"sync"
)

type Client struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func New() *Client {
	return &Client{blobs: make(map[string][]byte)}
}

func (c *Client) Close() error { return nil }

func (c *Client) GetSettings(ctx context.Context, userID string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.blobs[userID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *Client) PutSettings(ctx context.Context, userID string, blob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs[userID] = append([]byte(nil), blob...)
	return nil
}

func (c *Client) DeleteSettings(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.blobs, userID)
	return nil
}
