package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chatsync/internal/command"
	"github.com/chatsync/internal/feed"
	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/metrics"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/overlay"
	"github.com/chatsync/internal/store"
	"github.com/chatsync/internal/ws"
)

// Loader читает начальное состояние пользователя (repository.Documents).
type Loader interface {
	ConversationsFor(ctx context.Context, userID string) ([]*model.Conversation, error)
	MessagesOf(ctx context.Context, conversationID string, limit int) ([]*model.Message, error)
}

// SettingsBackend: service.SettingsService.
type SettingsBackend interface {
	Load(ctx context.Context, userID string) (model.UserSettings, error)
	command.SettingsStore
}

const (
	DefaultDraftTTL     = 7 * 24 * time.Hour
	DefaultIdleTimeout  = 30 * time.Minute
	DefaultHistoryLimit = 500
	sweepInterval       = time.Minute
)

type Options struct {
	Loader       Loader
	Writer       command.RemoteWriter
	Groups       command.GroupSource
	Settings     SettingsBackend
	Notifier     Notifier
	Connected    func(userID string) bool
	Location     *time.Location
	EditWindow   time.Duration
	DraftTTL     time.Duration
	WriteTimeout time.Duration
	HistoryLimit int
	IdleTimeout  time.Duration
	Now          func() time.Time
}

// Registry держит движки пользователей и раздаёт им события ленты.
type Registry struct {
	opts Options

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRegistry(opts Options) *Registry {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = DefaultDraftTTL
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{opts: opts, engines: make(map[string]*Engine)}
}

// Get возвращает движок пользователя, при первом обращении создаёт его и загружает состояние.
func (r *Registry) Get(ctx context.Context, userID string) (*Engine, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", command.ErrInvalidInput)
	}
	r.mu.Lock()
	if e, ok := r.engines[userID]; ok {
		r.mu.Unlock()
		e.touch()
		return e, nil
	}
	r.mu.Unlock()

	e, err := r.build(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.engines[userID]; ok {
		r.mu.Unlock()
		e.stop()
		existing.touch()
		return existing, nil
	}
	r.engines[userID] = e
	n := len(r.engines)
	r.mu.Unlock()

	metrics.SetEnginesActive(n)
	logger.Infof("engine started user=%s conversations=%d", userID, len(e.convs.List()))
	return e, nil
}

func (r *Registry) build(ctx context.Context, userID string) (*Engine, error) {
	defer logger.DeferLogDuration("engine.build", time.Now())()
	settings := model.DefaultUserSettings()
	if r.opts.Settings != nil {
		s, err := r.opts.Settings.Load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("engine.build: load settings: %w", err)
		}
		settings = s
	}
	e := &Engine{
		userID:  userID,
		convs:   store.NewConversationStore(),
		msgs:    store.NewMessageStore(),
		overlay: overlay.New(r.opts.DraftTTL),
		groups:  r.opts.Groups,
		loc:     r.opts.Location,
		now:     r.opts.Now,
	}
	deps := command.Deps{
		UserID:        userID,
		Conversations: e.convs,
		Messages:      e.msgs,
		Overlay:       e.overlay,
		Writer:        r.opts.Writer,
		Groups:        r.opts.Groups,
		Settings:      r.opts.Settings,
		EditWindow:    r.opts.EditWindow,
		WriteTimeout:  r.opts.WriteTimeout,
		Now:           r.opts.Now,
		Serial:        &e.serial,
	}
	e.cmd = command.New(deps, settings)
	if err := r.load(ctx, e); err != nil {
		return nil, err
	}
	e.touch()
	if r.opts.Notifier != nil {
		e.startWatch(r.opts.Notifier)
	}
	return e, nil
}

// load применяет начальное состояние через те же входы сторов, что и события ленты.
func (r *Registry) load(ctx context.Context, e *Engine) error {
	if r.opts.Loader == nil {
		return nil
	}
	convs, err := r.opts.Loader.ConversationsFor(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("engine.load: conversations: %w", err)
	}
	for _, c := range convs {
		if err := e.convs.Apply(store.ConversationEvent{Kind: store.EventUpsert, Conversation: c}); err != nil {
			// документ отклонён стором, остальные чаты грузим дальше
			continue
		}
		if err := r.loadHistory(ctx, e, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadHistory(ctx context.Context, e *Engine, conversationID string) error {
	e.msgs.Ensure(conversationID)
	if r.opts.Loader == nil {
		return nil
	}
	log, err := r.opts.Loader.MessagesOf(ctx, conversationID, r.opts.HistoryLimit)
	if err != nil {
		return fmt.Errorf("engine.load: messages of %s: %w", conversationID, err)
	}
	for _, m := range log {
		_ = e.msgs.AppendOrReplace(conversationID, m)
	}
	return nil
}

func (r *Registry) snapshot() []*Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		out = append(out, e)
	}
	return out
}

// Active: число живых движков.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Dispatch реализует feed.Dispatcher.
func (r *Registry) Dispatch(ctx context.Context, ev feed.Event) {
	metrics.RecordFeedEvent(string(ev.Kind), string(ev.Op))
	switch ev.Kind {
	case feed.KindConversation:
		r.dispatchConversation(ctx, ev)
	case feed.KindMessage:
		r.dispatchMessage(ev)
	case feed.KindGroup:
		r.dispatchGroup(ev)
	default:
		logger.Errorf("engine.Dispatch: unknown kind %q", ev.Kind)
	}
}

func (r *Registry) dispatchConversation(ctx context.Context, ev feed.Event) {
	for _, e := range r.snapshot() {
		e.apply(func() { r.applyConversation(ctx, e, ev) })
	}
}

func (r *Registry) applyConversation(ctx context.Context, e *Engine, ev feed.Event) {
	_, err := e.convs.Get(ev.ID)
	holds := err == nil
	switch {
	case ev.Op == feed.OpUpsert && ev.Conversation != nil && ev.Conversation.Participants.Has(e.userID):
		if err := e.convs.Apply(store.ConversationEvent{Kind: store.EventUpsert, Conversation: ev.Conversation}); err != nil {
			return
		}
		if !e.msgs.Has(ev.ID) {
			if err := r.loadHistory(ctx, e, ev.ID); err != nil {
				logger.Errorf("engine.Dispatch user=%s: %v", e.userID, err)
			}
		}
	case holds:
		// чат удалён или пользователь больше не участник
		r.forget(e, ev.ID)
	}
}

// forget вызывается в очереди мутаций движка.
func (r *Registry) forget(e *Engine, conversationID string) {
	_ = e.convs.Apply(store.ConversationEvent{Kind: store.EventRemove, Conversation: &model.Conversation{ID: conversationID}})
	e.msgs.Drop(conversationID)
	e.overlay.Leave(conversationID)
	e.overlay.ClearDraft(conversationID)
}

func (r *Registry) dispatchMessage(ev feed.Event) {
	if ev.Op == feed.OpRemove {
		// жёсткого удаления сообщений нет: удаление для всех приходит как upsert
		logger.Debugf("engine.Dispatch: message %s/%s removed from backend, ignored", ev.ConversationID, ev.ID)
		return
	}
	if ev.Message == nil {
		return
	}
	for _, e := range r.snapshot() {
		e.apply(func() {
			if e.msgs.Has(ev.ConversationID) {
				_ = e.msgs.AppendOrReplace(ev.ConversationID, ev.Message)
			}
		})
	}
}

func (r *Registry) dispatchGroup(ev feed.Event) {
	if r.opts.Notifier == nil {
		return
	}
	for _, e := range r.snapshot() {
		if _, err := e.convs.Get(ev.ConversationID); err != nil {
			continue
		}
		r.opts.Notifier.SendToUser(e.userID, ws.OutgoingMessage{
			Type:    ws.EventGroupChanged,
			Payload: ws.GroupChangedPayload{ConversationID: ev.ConversationID},
		})
	}
}

// Resync перечитывает состояние всех движков после разрыва ленты.
func (r *Registry) Resync(ctx context.Context) {
	if r.opts.Loader == nil {
		return
	}
	for _, e := range r.snapshot() {
		var err error
		e.apply(func() { err = r.resync(ctx, e) })
		if err != nil {
			logger.Errorf("engine.Resync user=%s: %v", e.userID, err)
		}
	}
}

func (r *Registry) resync(ctx context.Context, e *Engine) error {
	convs, err := r.opts.Loader.ConversationsFor(ctx, e.userID)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(convs))
	for _, c := range convs {
		seen[c.ID] = struct{}{}
		if err := e.convs.Apply(store.ConversationEvent{Kind: store.EventUpsert, Conversation: c}); err != nil {
			continue
		}
		if err := r.loadHistory(ctx, e, c.ID); err != nil {
			return err
		}
	}
	for _, c := range e.convs.List() {
		if _, ok := seen[c.ID]; !ok {
			r.forget(e, c.ID)
		}
	}
	return nil
}

// Sweep останавливает движки без обращений дольше idle, если у пользователя нет открытых сокетов.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.opts.Now().Add(-idle)
	var stale []*Engine
	r.mu.Lock()
	for id, e := range r.engines {
		if !e.idleSince().Before(cutoff) {
			continue
		}
		if r.opts.Connected != nil && r.opts.Connected(id) {
			continue
		}
		delete(r.engines, id)
		stale = append(stale, e)
	}
	n := len(r.engines)
	r.mu.Unlock()

	for _, e := range stale {
		e.stop()
		logger.Infof("engine stopped user=%s (idle)", e.userID)
	}
	metrics.SetEnginesActive(n)
	return len(stale)
}

// Run периодически выгружает простаивающие движки и чистит старые черновики.
func (r *Registry) Run(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(r.opts.IdleTimeout)
			now := r.opts.Now()
			for _, e := range r.snapshot() {
				if n := e.overlay.CleanupDrafts(now); n > 0 {
					logger.Debugf("engine user=%s dropped %d stale drafts", e.userID, n)
				}
			}
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	all := r.engines
	r.engines = make(map[string]*Engine)
	r.mu.Unlock()
	for _, e := range all {
		e.stop()
	}
	metrics.SetEnginesActive(0)
}

// Execute реализует ws.Executor: входящие команды сокета идут в командный API движка.
func (r *Registry) Execute(ctx context.Context, userID string, msg ws.IncomingMessage) (any, error) {
	e, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cmd := e.Commands()
	switch msg.Type {
	case ws.EventSendMessage:
		return cmd.Send(ctx, command.SendRequest{
			ConversationID: msg.ConversationID,
			Content:        msg.Content,
			MessageType:    msg.MessageType,
			FileInfo:       msg.FileInfo,
			ReplyMessageID: msg.ReplyMessageID,
			IsSilent:       msg.IsSilent,
		})
	case ws.EventEditMessage:
		return nil, cmd.Edit(ctx, command.EditRequest{
			ConversationID: msg.ConversationID,
			MessageID:      msg.MessageID,
			Content:        msg.Content,
		})
	case ws.EventDeleteMessage:
		ids := msg.MessageIDs
		if len(ids) == 0 && msg.MessageID != "" {
			ids = []string{msg.MessageID}
		}
		return nil, cmd.Delete(ctx, command.DeleteRequest{
			ConversationID: msg.ConversationID,
			MessageIDs:     ids,
			ForEveryone:    msg.ForEveryone,
		})
	case ws.EventReactionAdded, ws.EventReactionRemoved:
		req := command.ReactionRequest{ConversationID: msg.ConversationID, MessageID: msg.MessageID, Emoji: msg.Emoji}
		if msg.Type == ws.EventReactionAdded {
			return nil, cmd.React(ctx, req)
		}
		return nil, cmd.RemoveReaction(ctx, req)
	case ws.EventVote:
		if msg.Option == nil {
			return nil, fmt.Errorf("%w: vote option is required", command.ErrInvalidInput)
		}
		return nil, cmd.Vote(ctx, command.VoteRequest{
			ConversationID: msg.ConversationID,
			MessageID:      msg.MessageID,
			Option:         *msg.Option,
		})
	}
	return nil, fmt.Errorf("%w: unsupported command %q", command.ErrInvalidInput, msg.Type)
}
