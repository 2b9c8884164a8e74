package cached

import (
	"context"

	"github.com/chatsync/internal/storage"
	"github.com/chatsync/internal/storage/memory"
)

// Client держит настройки в памяти поверх долговременного хранилища (redis или disk):
// чтение сначала из памяти, запись сквозная.
type Client struct {
	mem     *memory.Client
	durable storage.SettingsStore
}

func New(durable storage.SettingsStore) *Client {
	return &Client{mem: memory.New(), durable: durable}
}

func (c *Client) Close() error {
	_ = c.mem.Close()
	return c.durable.Close()
}

func (c *Client) GetSettings(ctx context.Context, userID string) ([]byte, error) {
	if v, _ := c.mem.GetSettings(ctx, userID); v != nil {
		return v, nil
	}
	v, err := c.durable.GetSettings(ctx, userID)
	if err != nil || v == nil {
		return v, err
	}
	_ = c.mem.PutSettings(ctx, userID, v)
	return v, nil
}

// PutSettings пишет в долговременное хранилище, память обновляется только после успеха.
func (c *Client) PutSettings(ctx context.Context, userID string, blob []byte) error {
	if err := c.durable.PutSettings(ctx, userID, blob); err != nil {
		return err
	}
	return c.mem.PutSettings(ctx, userID, blob)
}

func (c *Client) DeleteSettings(ctx context.Context, userID string) error {
	if err := c.durable.DeleteSettings(ctx, userID); err != nil {
		return err
	}
	return c.mem.DeleteSettings(ctx, userID)
}
