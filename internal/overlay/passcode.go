package overlay

import (
	"crypto/subtle"
	"errors"

	"github.com/chatsync/internal/model"
)

var (
	ErrPasscodeRequired = errors.New("passcode required")
	ErrPasscodeMismatch = errors.New("incorrect passcode")
)

type PasscodeKind string

const (
	PasscodeLockedChats PasscodeKind = "locked_chats"
	PasscodeVanishMode  PasscodeKind = "vanish_mode"
	PasscodeDailyLock   PasscodeKind = "daily_lock"
)

// VerifyPasscode сверяет код локально; коды никуда не передаются.
// Выключенный замок пропускает без кода.
func VerifyPasscode(s model.PasscodeSettings, kind PasscodeKind, code string) error {
	var p model.Passcode
	switch kind {
	case PasscodeLockedChats:
		p = s.LockedChats
	case PasscodeVanishMode:
		p = s.VanishMode
	case PasscodeDailyLock:
		p = s.DailyChatLock
	default:
		return ErrPasscodeMismatch
	}
	if !p.Enabled {
		return nil
	}
	if code == "" {
		return ErrPasscodeRequired
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(p.Passcode)) != 1 {
		return ErrPasscodeMismatch
	}
	return nil
}
