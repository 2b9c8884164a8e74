// Command inspect печатает проекции движка (список чатов, ленту чата) для одного пользователя
// по JSON-снимку или прямо из Postgres.
package main

import (
	"os"

	"github.com/chatsync/internal/logger"
)

func main() {
	logger.SetPrefix("inspect")
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
