// Package engine держит по движку на пользователя: сторы, оверлей, командный API и снимок
// настроек. Лента изменений попадает в сторы через Registry.Dispatch, проекции считаются
// по запросу из текущих снимков.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/metrics"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/overlay"
	"github.com/chatsync/internal/permission"
	"github.com/chatsync/internal/projector"
	"github.com/chatsync/internal/store"
	"github.com/chatsync/internal/ws"
)

// Notifier доставляет события рендер-клиентам пользователя (ws.Hub).
type Notifier interface {
	SendToUser(userID string, msg ws.OutgoingMessage)
}

type Engine struct {
	userID   string
	convs    *store.ConversationStore
	msgs     *store.MessageStore
	overlay  *overlay.Overlay
	cmd      *command.Service
	groups   command.GroupSource
	loc      *time.Location
	now      func() time.Time
	lastUsed atomic.Int64

	// serial: очередь мутаций; её делят командный API, лента изменений и Leave
	serial sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

func (e *Engine) UserID() string { return e.userID }
func (e *Engine) Commands() *command.Service { return e.cmd }
func (e *Engine) Overlay() *overlay.Overlay { return e.overlay }
func (e *Engine) Conversations() *store.ConversationStore { return e.convs }
func (e *Engine) Messages() *store.MessageStore { return e.msgs }

// apply выполняет fn в очереди мутаций движка.
func (e *Engine) apply(fn func()) {
	e.serial.Lock()
	defer e.serial.Unlock()
	fn()
}

func (e *Engine) touch() {
	e.lastUsed.Store(e.now().UnixNano())
}

func (e *Engine) idleSince() time.Time {
	return time.Unix(0, e.lastUsed.Load())
}

// ChatList: список чатов с учётом режима скрытых чатов и черновиков.
func (e *Engine) ChatList(filter projector.ChatFilter, search string) []projector.ChatRow {
	started := time.Now()
	defer func() { metrics.RecordProjection("chat_list", time.Since(started)) }()
	defer logger.DeferLogDuration("engine.ChatList", started)()
	e.touch()
	return projector.ChatList(e.convs.List(), projector.ChatListParams{
		Filter:     filter,
		Search:     search,
		LockedView: e.overlay.LockedView(),
		Drafts:     e.overlay.Drafts(),
	})
}

// MessageList: лента чата с разделителями дат, каруселями и блокировками дней.
func (e *Engine) MessageList(conversationID string, filter projector.MessageFilter, search string) ([]projector.Item, error) {
	started := time.Now()
	defer func() { metrics.RecordProjection("message_list", time.Since(started)) }()
	defer logger.DeferLogDuration("engine.MessageList", started)()
	e.touch()
	if _, err := e.convs.Get(conversationID); err != nil {
		return nil, err
	}
	log, err := e.msgs.Messages(conversationID)
	if err != nil {
		// лог ещё не загружен: пустая лента, а не ошибка
		log = nil
	}
	settings := e.cmd.Settings()
	return projector.MessageList(log, projector.MessageListParams{
		ViewerID:     e.userID,
		Filter:       filter,
		Search:       search,
		LockedDates:  settings.LockedDatesOf(conversationID),
		Unlocked:     e.overlay.SessionUnlocked(conversationID),
		ShowSecurity: settings.SecurityNotifications,
		Location:     e.loc,
		Now:          e.now(),
	}), nil
}

// MediaGroups: медиа чата по корзинам «сегодня / неделя / раньше».
func (e *Engine) MediaGroups(conversationID string, filter projector.MessageFilter) (projector.TimeGroups[*model.Message], error) {
	items, err := e.MessageList(conversationID, filter, "")
	if err != nil {
		return projector.TimeGroups[*model.Message]{}, err
	}
	var media []*model.Message
	for _, it := range items {
		switch it.Kind {
		case projector.ItemMessage:
			media = append(media, it.Message)
		case projector.ItemCarousel:
			media = append(media, it.Messages...)
		}
	}
	return projector.GroupByTime(media, func(m *model.Message) time.Time { return m.Timestamp }, e.now()), nil
}

// Permissions пересчитывает права пользователя в чате по текущему GroupInfo.
func (e *Engine) Permissions(ctx context.Context, conversationID string) (permission.Capabilities, error) {
	c, err := e.convs.Get(conversationID)
	if err != nil {
		return permission.Capabilities{}, err
	}
	if c.ConversationType != model.ConversationTypeGroup || e.groups == nil {
		return permission.Derive(nil, e.userID), nil
	}
	g, err := e.groups.Group(ctx, conversationID)
	if err != nil {
		return permission.Capabilities{}, err
	}
	return permission.Derive(g, e.userID), nil
}

// Leave закрывает чат: сбрасывает дни, открытые на сессию, выделение и черновики ответа/правки.
// Подписки других чатов не трогаются.
func (e *Engine) Leave(conversationID string) {
	e.apply(func() { e.overlay.Leave(conversationID) })
	e.touch()
}

// startWatch подписывается на сторы сразу и пересылает изменения рендер-клиентам до stop.
func (e *Engine) startWatch(n Notifier) {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	convCh, stopConvs := e.convs.Subscribe()
	msgCh, stopMsgs := e.msgs.Subscribe()
	go func() {
		defer close(e.done)
		defer stopConvs()
		defer stopMsgs()
		for {
			select {
			case <-ctx.Done():
				return
			case ch, ok := <-convCh:
				if !ok {
					return
				}
				n.SendToUser(e.userID, ws.OutgoingMessage{
					Type:    ws.EventConversationsChanged,
					Payload: ws.ConversationsChangedPayload{Revision: ch.Revision},
				})
			case ch, ok := <-msgCh:
				if !ok {
					return
				}
				n.SendToUser(e.userID, ws.OutgoingMessage{
					Type:    ws.EventMessagesChanged,
					Payload: ws.MessagesChangedPayload{ConversationID: ch.ConversationID, MessageID: ch.MessageID, Revision: ch.Revision},
				})
			}
		}
	}()
}

func (e *Engine) stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}
