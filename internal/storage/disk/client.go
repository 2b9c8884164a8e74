// Package disk хранит настройки в файлах через diskv: один файл на пользователя.
package disk

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/peterbourgon/diskv/v3"
)

type Client struct {
	d *diskv.Diskv
}

// New открывает хранилище в basePath; cacheBytes: размер кеша diskv в памяти.
func New(basePath string, cacheBytes uint64) *Client {
	return &Client{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    shard,
		CacheSizeMax: cacheBytes,
	})}
}

// key превращает произвольный user_id в безопасное имя файла.
func key(userID string) string {
	sum := sha1.Sum([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// shard раскладывает файлы по двум уровням каталогов, чтобы не держать всё в одном.
func shard(k string) []string {
	if len(k) < 4 {
		return []string{}
	}
	return []string{k[0:2], k[2:4]}
}

func (c *Client) Close() error { return nil }

func (c *Client) GetSettings(ctx context.Context, userID string) ([]byte, error) {
	k := key(userID)
	if !c.d.Has(k) {
		return nil, nil
	}
	v, err := c.d.Read(k)
	if err != nil {
		return nil, fmt.Errorf("disk.GetSettings: %w", err)
	}
	return v, nil
}

func (c *Client) PutSettings(ctx context.Context, userID string, blob []byte) error {
	if err := c.d.Write(key(userID), blob); err != nil {
		return fmt.Errorf("disk.PutSettings: %w", err)
	}
	return nil
}

func (c *Client) DeleteSettings(ctx context.Context, userID string) error {
	k := key(userID)
	if !c.d.Has(k) {
		return nil
	}
	if err := c.d.Erase(k); err != nil {
		return fmt.Errorf("disk.DeleteSettings: %w", err)
	}
	return nil
}
