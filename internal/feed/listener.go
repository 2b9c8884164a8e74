package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/metrics"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/repository"
)

// Source перечитывает документы по ключам уведомления (repository.Documents).
type Source interface {
	Conversation(ctx context.Context, id string) (*model.Conversation, error)
	Message(ctx context.Context, conversationID, id string) (*model.Message, error)
	Group(ctx context.Context, conversationID string) (*model.GroupInfo, error)
}

// Dispatcher применяет события к движкам пользователей. Resync вызывается после
// переподключения: уведомления за время разрыва потеряны.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
	Resync(ctx context.Context)
}

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

type Listener struct {
	pool    *pgxpool.Pool
	channel string
	source  Source
	disp    Dispatcher
}

func NewListener(pool *pgxpool.Pool, channel string, source Source, disp Dispatcher) *Listener {
	return &Listener{pool: pool, channel: channel, source: source, disp: disp}
}

// Run слушает канал до отмены ctx, переподключаясь с экспоненциальной задержкой.
func (l *Listener) Run(ctx context.Context) error {
	backoff := minBackoff
	first := true
	for {
		connected, err := l.listen(ctx, !first)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = minBackoff
			first = false
		}
		logger.Errorf("feed: listen %s: %v, reconnect in %v", l.channel, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context, resync bool) (bool, error) {
	pc, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire: %w", err)
	}
	// соединение с LISTEN не возвращается в пул
	conn := pc.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("listen: %w", err)
	}
	logger.Infof("feed: listening on %s", l.channel)
	if resync {
		l.disp.Resync(ctx)
	}
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		l.Handle(ctx, n.Payload)
	}
}

// Handle обрабатывает одно уведомление. Ошибки логируются: плохое уведомление не
// останавливает ленту.
func (l *Listener) Handle(ctx context.Context, payload string) {
	n, kind, op, err := DecodeNotification(payload)
	if err != nil {
		logger.Warnf("feed: %v", err)
		return
	}
	ev, err := l.resolve(ctx, n, kind, op)
	if err != nil {
		logger.Errorf("feed: fetch %s %s: %v", kind, n.ID, err)
		return
	}
	metrics.RecordFeedEvent(string(ev.Kind), string(ev.Op))
	l.disp.Dispatch(ctx, ev)
}

// resolve перечитывает документ. Если он исчез между уведомлением и чтением,
// событие становится удалением.
func (l *Listener) resolve(ctx context.Context, n Notification, kind Kind, op Op) (Event, error) {
	ev := Event{Kind: kind, Op: op, ID: n.ID, ConversationID: n.ConversationID}
	if op == OpRemove {
		return ev, nil
	}
	var err error
	switch kind {
	case KindConversation:
		ev.Conversation, err = l.source.Conversation(ctx, n.ID)
	case KindMessage:
		ev.Message, err = l.source.Message(ctx, n.ConversationID, n.ID)
	case KindGroup:
		ev.Group, err = l.source.Group(ctx, n.ConversationID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		ev.Op = OpRemove
		return ev, nil
	}
	return ev, err
}
