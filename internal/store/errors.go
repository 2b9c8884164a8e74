// Package store: локальные хранилища чатов и сообщений. Единственный источник истины на клиенте:
// проекции и оверлей только читают снимки, все изменения идут через методы стора.
package store

import (
	"errors"
	"fmt"

	"github.com/chatsync/internal/logger"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
)

// report логирует ошибку уровня стора и возвращает её. Ошибки стора не фатальны:
// вызывающий код (лента, команды) решает, показывать ли их пользователю.
func report(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		logger.Debugf("store.%s: %v", op, err)
	} else {
		logger.Warnf("store.%s: %v", op, err)
	}
	return fmt.Errorf("store.%s: %w", op, err)
}
