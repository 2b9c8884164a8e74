package command

import (
	"context"
	"fmt"
	"time"

	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/overlay"
)

type DailyLockRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Passcode       string `json:"passcode"`
}

type ThemeRequest struct {
	ConversationID string  `json:"conversation_id" validate:"required"`
	Theme          *string `json:"theme" validate:"omitempty,max=64"`
}

// SettingsUpdate: частичное изменение настроек; nil-поля не трогаются.
type SettingsUpdate struct {
	DefaultTheme          *string `json:"default_theme" validate:"omitempty,max=64"`
	SecurityNotifications *bool   `json:"security_notifications"`
}

type PasscodeChange struct {
	Kind    overlay.PasscodeKind `json:"kind" validate:"required,oneof=locked_chats vanish_mode daily_lock"`
	Current string               `json:"current"`
	New     string               `json:"new" validate:"omitempty,len=4,numeric"`
	Enabled *bool                `json:"enabled"`
}

// ToggleChatLock переключает isLocked чата. В обе стороны нужен код скрытых чатов.
func (s *Service) ToggleChatLock(ctx context.Context, conversationID, passcode string) (locked bool, err error) {
	ctx, done := s.begin(ctx, "toggle_chat_lock", &err)
	defer done()
	conv, err := s.conversation(conversationID)
	if err != nil {
		return false, err
	}
	if err := s.verify(overlay.PasscodeLockedChats, passcode); err != nil {
		return conv.IsLocked, err
	}
	locked = !conv.IsLocked
	if err := s.convs.SetLocked(conversationID, locked); err != nil {
		return conv.IsLocked, err
	}
	return locked, s.remote(ctx, "toggle_chat_lock", func(ctx context.Context) error {
		return s.writer.SetChatLocked(ctx, conversationID, locked)
	})
}

func (s *Service) ToggleVanishMode(ctx context.Context, conversationID, passcode string) (on bool, err error) {
	ctx, done := s.begin(ctx, "toggle_vanish_mode", &err)
	defer done()
	conv, err := s.conversation(conversationID)
	if err != nil {
		return false, err
	}
	if err := s.verify(overlay.PasscodeVanishMode, passcode); err != nil {
		return conv.IsVanishMode, err
	}
	on = !conv.IsVanishMode
	if err := s.convs.SetVanishMode(conversationID, on); err != nil {
		return conv.IsVanishMode, err
	}
	return on, s.remote(ctx, "toggle_vanish_mode", func(ctx context.Context) error {
		return s.writer.SetVanishMode(ctx, conversationID, on)
	})
}

// ToggleLockedView переключает показ скрытых чатов. Вход по коду, выход без него.
// Состояние только клиентское.
func (s *Service) ToggleLockedView(passcode string) (on bool, err error) {
	_, done := s.begin(context.Background(), "toggle_locked_view", &err)
	defer done()
	if s.overlay.LockedView() {
		s.overlay.SetLockedView(false)
		return false, nil
	}
	if err := s.verify(overlay.PasscodeLockedChats, passcode); err != nil {
		return false, err
	}
	s.overlay.SetLockedView(true)
	return true, nil
}

// ToggleDailyLock блокирует или открывает день в чате по коду.
// Открытие снимает постоянную блокировку и открывает день на сессию.
// Блокировка ставит флаг и закрывает день и для текущей сессии.
func (s *Service) ToggleDailyLock(ctx context.Context, req DailyLockRequest) (locked bool, err error) {
	ctx, done := s.begin(ctx, "toggle_daily_lock", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return false, err
	}
	if _, err := s.conversation(req.ConversationID); err != nil {
		return false, err
	}
	wasLocked := s.Settings().LockedDatesOf(req.ConversationID).Has(req.Date)
	if err := s.verify(overlay.PasscodeDailyLock, req.Passcode); err != nil {
		return wasLocked, err
	}
	locked = !wasLocked
	if locked {
		s.overlay.RevokeSessionUnlock(req.ConversationID, req.Date)
	} else {
		s.overlay.UnlockForSession(req.ConversationID, req.Date)
	}
	_, err = s.updateSettings(ctx, "toggle_daily_lock", func(us *model.UserSettings) error {
		us.SetDateLocked(req.ConversationID, req.Date, locked)
		return nil
	})
	return locked, err
}

// ClearChat скрывает для пользователя все сообщения чата и обнуляет сводку.
func (s *Service) ClearChat(ctx context.Context, conversationID string) (err error) {
	ctx, done := s.begin(ctx, "clear_chat", &err)
	defer done()
	if _, err := s.conversation(conversationID); err != nil {
		return err
	}
	at := s.now()
	s.msgs.Ensure(conversationID)
	if err := s.msgs.HideAllForUser(conversationID, s.userID); err != nil {
		return err
	}
	if err := s.convs.ResetSummary(conversationID, at); err != nil {
		return err
	}
	s.overlay.ExitSelectionMode(conversationID)
	return s.remote(ctx, "clear_chat", func(ctx context.Context) error {
		return s.writer.ClearChat(ctx, conversationID, s.userID, at)
	})
}

// UpdateTheme меняет тему чата у себя; received: тема, присланная собеседником.
func (s *Service) UpdateTheme(ctx context.Context, req ThemeRequest, received bool) (err error) {
	op := "update_theme"
	if received {
		op = "update_received_theme"
	}
	ctx, done := s.begin(ctx, op, &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.conversation(req.ConversationID); err != nil {
		return err
	}
	if received {
		err = s.convs.SetReceivedTheme(req.ConversationID, req.Theme)
	} else {
		err = s.convs.SetTheme(req.ConversationID, req.Theme)
	}
	if err != nil {
		return err
	}
	return s.remote(ctx, op, func(ctx context.Context) error {
		return s.writer.SetTheme(ctx, req.ConversationID, req.Theme, received)
	})
}

func (s *Service) UpdateSettings(ctx context.Context, req SettingsUpdate) (_ model.UserSettings, err error) {
	ctx, done := s.begin(ctx, "update_settings", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return model.UserSettings{}, err
	}
	return s.updateSettings(ctx, "update_settings", func(us *model.UserSettings) error {
		if req.DefaultTheme != nil {
			t := *req.DefaultTheme
			us.DefaultTheme = &t
		}
		if req.SecurityNotifications != nil {
			us.SecurityNotifications = *req.SecurityNotifications
		}
		return nil
	})
}

// ChangePasscode меняет код или включает/выключает замок. Нужен текущий код.
func (s *Service) ChangePasscode(ctx context.Context, req PasscodeChange) (err error) {
	ctx, done := s.begin(ctx, "change_passcode", &err)
	defer done()
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.New == "" && req.Enabled == nil {
		return fmt.Errorf("%w: nothing to change", ErrInvalidInput)
	}
	if err := s.verify(req.Kind, req.Current); err != nil {
		return err
	}
	_, err = s.updateSettings(ctx, "change_passcode", func(us *model.UserSettings) error {
		var p *model.Passcode
		switch req.Kind {
		case overlay.PasscodeLockedChats:
			p = &us.Passcodes.LockedChats
		case overlay.PasscodeVanishMode:
			p = &us.Passcodes.VanishMode
		case overlay.PasscodeDailyLock:
			p = &us.Passcodes.DailyChatLock
		}
		if req.New != "" {
			p.Passcode = req.New
		}
		if req.Enabled != nil {
			p.Enabled = *req.Enabled
		}
		return nil
	})
	return err
}

// Now: часы сервиса, в тестах подменяются через Deps.
func (s *Service) Now() time.Time { return s.now() }
