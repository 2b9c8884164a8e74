// Package command принимает действия пользователя: проверяет права, применяет изменение
// к локальным сторам сразу и затем пишет в бэкенд. Подтверждение приходит через фид.
package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/metrics"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/overlay"
	"github.com/chatsync/internal/permission"
	"github.com/chatsync/internal/store"
)

const (
	DefaultEditWindow   = 15 * time.Minute
	DefaultWriteTimeout = 10 * time.Second
)

type Deps struct {
	UserID        string
	Conversations *store.ConversationStore
	Messages      *store.MessageStore
	Overlay       *overlay.Overlay
	Writer        RemoteWriter
	Groups        GroupSource
	Settings      SettingsStore
	EditWindow    time.Duration
	WriteTimeout  time.Duration
	Now           func() time.Time
	NewID         func() string
	// Serial: очередь мутаций движка, общая с лентой изменений. nil: своя.
	Serial *sync.Mutex
}

// Service: командный API одного пользователя.
type Service struct {
	userID       string
	convs        *store.ConversationStore
	msgs         *store.MessageStore
	overlay      *overlay.Overlay
	writer       RemoteWriter
	groups       GroupSource
	settingsDB   SettingsStore
	editWindow   time.Duration
	writeTimeout time.Duration
	now          func() time.Time
	newID        func() string
	serial       *sync.Mutex

	mu       sync.RWMutex
	settings model.UserSettings
}

// New собирает сервис; settings: снимок, прочитанный в начале сессии.
func New(d Deps, settings model.UserSettings) *Service {
	s := &Service{
		userID:       d.UserID,
		convs:        d.Conversations,
		msgs:         d.Messages,
		overlay:      d.Overlay,
		writer:       d.Writer,
		groups:       d.Groups,
		settingsDB:   d.Settings,
		editWindow:   d.EditWindow,
		writeTimeout: d.WriteTimeout,
		now:          d.Now,
		newID:        d.NewID,
		serial:       d.Serial,
		settings:     settings.Clone(),
	}
	if s.editWindow <= 0 {
		s.editWindow = DefaultEditWindow
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = DefaultWriteTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.serial == nil {
		s.serial = &sync.Mutex{}
	}
	return s
}

func (s *Service) UserID() string { return s.userID }

// Settings: текущий снимок настроек (копия).
func (s *Service) Settings() model.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// record вызывается через defer с указателем на именованную ошибку команды.
func (s *Service) record(op string, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.RecordCommand(op, outcome(err))
	if err != nil {
		logger.Debugf("command.%s user=%s: %v", op, s.userID, err)
	}
}

// remote выполняет запись в бэкенд с таймаутом. Ошибка оборачивается в RemoteWriteError.
// Локальная часть команды к этому моменту завершена, очередь движка отпускается.
func (s *Service) remote(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	yield(ctx)
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := fn(wctx); err != nil {
		metrics.RecordRemoteWriteFailure(op)
		logger.Errorf("command.%s user=%s remote write: %v", op, s.userID, err)
		return &RemoteWriteError{Op: op, Err: err}
	}
	return nil
}

// conversation возвращает чат, если пользователь в нём участвует.
func (s *Service) conversation(id string) (*model.Conversation, error) {
	c, err := s.convs.Get(id)
	if err != nil {
		return nil, err
	}
	if !c.Participants.Has(s.userID) {
		return nil, fmt.Errorf("%w: not a participant of %s", ErrPermissionDenied, id)
	}
	return c, nil
}

// capabilities пересчитываются на каждую команду: роль могла смениться.
func (s *Service) capabilities(ctx context.Context, c *model.Conversation) (permission.Capabilities, error) {
	if c.ConversationType != model.ConversationTypeGroup || s.groups == nil {
		return permission.Derive(nil, s.userID), nil
	}
	g, err := s.groups.Group(ctx, c.ID)
	if err != nil {
		return permission.Capabilities{}, fmt.Errorf("load group %s: %w", c.ID, err)
	}
	return permission.Derive(g, s.userID), nil
}

func (s *Service) verify(kind overlay.PasscodeKind, code string) error {
	s.mu.RLock()
	codes := s.settings.Passcodes
	s.mu.RUnlock()
	return overlay.VerifyPasscode(codes, kind, code)
}

// updateSettings меняет снимок сразу и затем сохраняет его. При ошибке записи снимок не
// откатывается.
func (s *Service) updateSettings(ctx context.Context, op string, fn func(*model.UserSettings) error) (model.UserSettings, error) {
	s.mu.Lock()
	next := s.settings.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return model.UserSettings{}, err
	}
	s.settings = next
	snapshot := next.Clone()
	s.mu.Unlock()

	if s.settingsDB == nil {
		return snapshot, nil
	}
	err := s.remote(ctx, op, func(ctx context.Context) error {
		return s.settingsDB.Save(ctx, s.userID, snapshot)
	})
	return snapshot, err
}
