// Package logger пишет строки с префиксом сервиса через асинхронную очередь,
// чтобы проекции и обработчики фида не ждали stdout. Умеет логировать длительность вызовов.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	queueSize = 8192
	// slowCall: порог, после которого LogDuration пишет и при уровне info.
	slowCall = 50 * time.Millisecond
)

type level int32

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var (
	prefix  atomic.Value // string
	current atomic.Int32
	dropped atomic.Int64
	queue   chan string
	once    sync.Once
)

func parseLevel(s string) level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func start() {
	current.Store(int32(parseLevel(os.Getenv("LOG_LEVEL"))))
	queue = make(chan string, queueSize)
	go func() {
		for line := range queue {
			log.Print(line)
		}
	}()
}

func enabled(l level) bool {
	once.Do(start)
	return level(current.Load()) <= l
}

func emit(l level, tagText, msg string) {
	if !enabled(l) {
		return
	}
	line := tag() + tagText + msg
	select {
	case queue <- line:
	default:
		// очередь полна: строку теряем
		dropped.Add(1)
	}
}

// SetPrefix задаёт префикс для всех последующих строк ("api", "inspect").
func SetPrefix(p string) {
	prefix.Store(p)
}

// SetLevel переопределяет LOG_LEVEL (debug, info, warn, error).
func SetLevel(s string) {
	once.Do(start)
	current.Store(int32(parseLevel(s)))
}

// Dropped: сколько строк потеряно из-за переполнения очереди.
func Dropped() int64 {
	return dropped.Load()
}

func tag() string {
	p, _ := prefix.Load().(string)
	if p == "" {
		return ""
	}
	return "[" + p + "] "
}

func Debugf(format string, v ...any) {
	emit(levelDebug, "DEBUG: ", fmt.Sprintf(format, v...))
}

func Info(v ...any) {
	emit(levelInfo, "", fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	emit(levelInfo, "", fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	emit(levelWarn, "WARN: ", fmt.Sprintf(format, v...))
}

func Error(v ...any) {
	emit(levelError, "ERROR: ", fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	emit(levelError, "ERROR: ", fmt.Sprintf(format, v...))
}

// LogDuration пишет имя функции и время в миллисекундах.
// На уровне debug пишется каждый вызов, иначе только медленные.
func LogDuration(fn string, started time.Time) {
	elapsed := time.Since(started)
	if !enabled(levelDebug) && elapsed < slowCall {
		return
	}
	emit(levelInfo, "", fmt.Sprintf("fn=%s duration_ms=%d", fn, elapsed.Milliseconds()))
}

// DeferLogDuration для defer: defer logger.DeferLogDuration("engine.ChatList", time.Now())().
func DeferLogDuration(fn string, started time.Time) func() {
	return func() { LogDuration(fn, started) }
}
