package model

// Passcode: настройка одного код-замка.
type Passcode struct {
	Enabled  bool   `json:"enabled"`
	Passcode string `json:"passcode"`
}

type PasscodeSettings struct {
	LockedChats   Passcode `json:"locked_chats"`
	VanishMode    Passcode `json:"vanish_mode"`
	DailyChatLock Passcode `json:"daily_chat_lock"`
}

// UserSettings хранится у бэкенда как непрозрачный JSON-блоб на пользователя.
type UserSettings struct {
	DefaultTheme          *string             `json:"default_theme,omitempty"`
	SecurityNotifications bool                `json:"security_notifications"`
	Passcodes             PasscodeSettings    `json:"passcode_settings"`
	LockedDates           map[string][]string `json:"locked_dates"`
}

// DefaultUserSettings: значения для пользователя без сохранённых настроек.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		Passcodes: PasscodeSettings{
			LockedChats:   Passcode{Enabled: true, Passcode: "1234"},
			VanishMode:    Passcode{Enabled: true, Passcode: "5678"},
			DailyChatLock: Passcode{Enabled: true, Passcode: "0000"},
		},
		LockedDates: make(map[string][]string),
	}
}

// Public скрывает коды перед отдачей наружу.
func (s UserSettings) Public() UserSettings {
	out := s
	out.Passcodes.LockedChats.Passcode = ""
	out.Passcodes.VanishMode.Passcode = ""
	out.Passcodes.DailyChatLock.Passcode = ""
	return out
}

// LockedDatesOf возвращает заблокированные дни чата множеством.
func (s UserSettings) LockedDatesOf(conversationID string) Set {
	return NewSet(s.LockedDates[conversationID]...)
}

// SetDateLocked добавляет или убирает день из постоянных блокировок чата.
func (s *UserSettings) SetDateLocked(conversationID, date string, locked bool) {
	if s.LockedDates == nil {
		s.LockedDates = make(map[string][]string)
	}
	days := NewSet(s.LockedDates[conversationID]...)
	if locked {
		days.Add(date)
	} else {
		days.Remove(date)
	}
	if days.Len() == 0 {
		delete(s.LockedDates, conversationID)
		return
	}
	s.LockedDates[conversationID] = days.Slice()
}

// Clone: глубокая копия, LockedDates не разделяется.
func (s UserSettings) Clone() UserSettings {
	out := s
	if s.DefaultTheme != nil {
		t := *s.DefaultTheme
		out.DefaultTheme = &t
	}
	out.LockedDates = make(map[string][]string, len(s.LockedDates))
	for conv, days := range s.LockedDates {
		out.LockedDates[conv] = append([]string(nil), days...)
	}
	return out
}
