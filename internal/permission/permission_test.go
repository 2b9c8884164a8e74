package permission

import (
	"strings"
	"testing"

	"github.com/chatsync/internal/model"
)

func group() *model.GroupInfo {
	return &model.GroupInfo{
		ConversationID: "g",
		Members: map[string]model.Role{
			"admin":  model.RoleAdmin,
			"co":     model.RoleCoAdmin,
			"co2":    model.RoleCoAdmin,
			"member": model.RoleMember,
			"m2":     model.RoleMember,
		},
		MemberCount: 5,
	}
}

func TestDeriveFlags(t *testing.T) {
	tests := []struct {
		user             string
		staff, adminOnly bool
	}{
		{user: "admin", staff: true, adminOnly: true},
		{user: "co", staff: true, adminOnly: false},
		{user: "member", staff: false, adminOnly: false},
		{user: "stranger", staff: false, adminOnly: false},
	}
	for _, tt := range tests {
		c := Derive(group(), tt.user)
		for name, got := range map[string]bool{
			"CanAddMembers": c.CanAddMembers, "CanChangeGroupInfo": c.CanChangeGroupInfo,
			"CanManageMessages": c.CanManageMessages, "CanPin": c.CanPin,
		} {
			if got != tt.staff {
				t.Errorf("%s.%s = %v, want %v", tt.user, name, got, tt.staff)
			}
		}
		for name, got := range map[string]bool{
			"CanChangeGroupSettings": c.CanChangeGroupSettings, "CanDeleteGroup": c.CanDeleteGroup,
			"CanPromoteToCoAdmin": c.CanPromoteToCoAdmin, "CanDemoteFromCoAdmin": c.CanDemoteFromCoAdmin,
		} {
			if got != tt.adminOnly {
				t.Errorf("%s.%s = %v, want %v", tt.user, name, got, tt.adminOnly)
			}
		}
	}
}

func TestCanRemoveMember(t *testing.T) {
	tests := []struct {
		user, target string
		want         bool
	}{
		{"admin", "co", true},
		{"admin", "member", true},
		{"co", "member", true},
		{"co", "co2", false},
		{"co", "admin", false},
		{"member", "m2", false},
	}
	for _, tt := range tests {
		if got := Derive(group(), tt.user).CanRemoveMember(tt.target); got != tt.want {
			t.Errorf("%s removes %s = %v, want %v", tt.user, tt.target, got, tt.want)
		}
	}
	if Derive(nil, "u1").CanRemoveMember("u2") {
		t.Error("no group: remove must be false")
	}
}

func TestCanDeleteMessage(t *testing.T) {
	tests := []struct {
		user, author string
		want         bool
	}{
		{"admin", "co", true},
		{"admin", "admin", true},
		{"co", "member", true},
		{"co", "co", true},
		{"co", "co2", false},
		{"co", "admin", false},
		{"member", "member", true},
		{"member", "m2", false},
	}
	for _, tt := range tests {
		if got := Derive(group(), tt.user).CanDeleteMessage(tt.author); got != tt.want {
			t.Errorf("%s deletes %s's message = %v, want %v", tt.user, tt.author, got, tt.want)
		}
	}

	solo := Derive(nil, "u1")
	if !solo.CanDeleteMessage("u1") || solo.CanDeleteMessage("u2") {
		t.Error("no group: only own messages are deletable")
	}
	if solo.CanPin || solo.CanManageMessages {
		t.Error("no group: capability flags must be false")
	}
}

func TestRemovableMembers(t *testing.T) {
	tests := []struct {
		user string
		want string
	}{
		{"admin", "co,co2,m2,member"},
		{"co", "m2,member"},
		{"member", ""},
	}
	for _, tt := range tests {
		got := strings.Join(Derive(group(), tt.user).RemovableMembers, ",")
		if got != tt.want {
			t.Errorf("%s: removable = %q, want %q", tt.user, got, tt.want)
		}
	}
	if got := Derive(nil, "alice").RemovableMembers; got != nil {
		t.Errorf("individual chat: %v", got)
	}
}
