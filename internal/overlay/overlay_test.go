package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/chatsync/internal/model"
)

func TestSelectionAutoExit(t *testing.T) {
	o := New(0)
	s := o.EnterSelectionMode("c", []string{"m1"})
	if !s.Active || len(s.Selected) != 1 {
		t.Fatalf("enter: %+v", s)
	}
	s = o.ToggleSelection("c", []string{"m1"})
	if s.Active || len(s.Selected) != 0 {
		t.Errorf("selection must exit when empty: %+v", s)
	}
}

func TestToggleSelectionGroup(t *testing.T) {
	o := New(0)
	o.EnterSelectionMode("c", []string{"m1"})

	s := o.ToggleSelection("c", []string{"m2", "m3"})
	if len(s.Selected) != 3 {
		t.Fatalf("add group: %+v", s)
	}
	// один из группы уже выделен: снимается вся группа
	s = o.ToggleSelection("c", []string{"m3", "m4"})
	if len(s.Selected) != 2 || !s.Active {
		t.Errorf("remove group: %+v", s)
	}
	s = o.ExitSelectionMode("c")
	if s.Active || len(s.Selected) != 0 {
		t.Errorf("exit: %+v", s)
	}
	if o.EnterSelectionMode("c", nil).Active {
		t.Error("empty initial selection must not activate")
	}
}

func TestReplyEditExclusive(t *testing.T) {
	o := New(0)
	o.StartReply("c", "m1")
	o.StartEdit("c", "m2", "text")
	r, e := o.Compose("c")
	if r != nil || e == nil || e.MessageID != "m2" {
		t.Fatalf("edit must clear reply: %v %v", r, e)
	}
	o.StartReply("c", "m3")
	r, e = o.Compose("c")
	if e != nil || r == nil || r.MessageID != "m3" {
		t.Errorf("reply must clear edit: %v %v", r, e)
	}
}

func TestLeaveClearsConversationState(t *testing.T) {
	o := New(0)
	o.EnterSelectionMode("c", []string{"m1"})
	o.StartReply("c", "m1")
	o.UnlockForSession("c", "2024-05-01")
	o.UnlockForSession("other", "2024-05-01")
	o.SaveDraft("c", "keep me", time.Now())

	o.Leave("c")

	if s := o.Selection("c"); s.Active {
		t.Error("selection survived leave")
	}
	if r, e := o.Compose("c"); r != nil || e != nil {
		t.Error("compose drafts survived leave")
	}
	if o.SessionUnlocked("c").Len() != 0 {
		t.Error("session unlocks survived leave")
	}
	if !o.SessionUnlocked("other").Has("2024-05-01") {
		t.Error("leave touched another conversation")
	}
	if _, ok := o.Draft("c"); !ok {
		t.Error("text draft must survive leave")
	}
}

func TestDrafts(t *testing.T) {
	o := New(7 * 24 * time.Hour)
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	o.SaveDraft("old", "x", now.Add(-8*24*time.Hour))
	o.SaveDraft("new", "y", now.Add(-time.Hour))
	o.SaveDraft("blank", "   ", now)

	if _, ok := o.Draft("blank"); ok {
		t.Error("blank draft stored")
	}
	if n := o.CleanupDrafts(now); n != 1 {
		t.Errorf("cleanup removed %d, want 1", n)
	}
	all := o.Drafts()
	if len(all) != 1 || all["new"] != "y" {
		t.Errorf("drafts = %v", all)
	}
	o.ClearDraft("new")
	if len(o.Drafts()) != 0 {
		t.Error("clear failed")
	}
}

func TestVerifyPasscode(t *testing.T) {
	s := model.DefaultUserSettings().Passcodes
	if err := VerifyPasscode(s, PasscodeDailyLock, "0000"); err != nil {
		t.Errorf("valid code: %v", err)
	}
	if err := VerifyPasscode(s, PasscodeLockedChats, "0000"); !errors.Is(err, ErrPasscodeMismatch) {
		t.Errorf("wrong code: %v", err)
	}
	if err := VerifyPasscode(s, PasscodeVanishMode, ""); !errors.Is(err, ErrPasscodeRequired) {
		t.Errorf("missing code: %v", err)
	}
	s.VanishMode.Enabled = false
	if err := VerifyPasscode(s, PasscodeVanishMode, ""); err != nil {
		t.Errorf("disabled lock: %v", err)
	}
}
