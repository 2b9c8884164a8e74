// Package permission выводит права пользователя в чате из GroupInfo.
// Чистая функция: пересчитывается на каждое изменение GroupInfo, снимки не кешируются.
package permission

import (
	"sort"

	"github.com/chatsync/internal/model"
)

type Capabilities struct {
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role,omitempty"`

	CanAddMembers          bool `json:"can_add_members"`
	CanChangeGroupInfo     bool `json:"can_change_group_info"`
	CanManageMessages      bool `json:"can_manage_messages"`
	CanPin                 bool `json:"can_pin"`
	CanChangeGroupSettings bool `json:"can_change_group_settings"`
	CanDeleteGroup         bool `json:"can_delete_group"`
	CanPromoteToCoAdmin    bool `json:"can_promote_to_co_admin"`
	CanDemoteFromCoAdmin   bool `json:"can_demote_from_co_admin"`

	// RemovableMembers: участники, которых пользователь может удалить из группы.
	RemovableMembers []string `json:"removable_members,omitempty"`

	group *model.GroupInfo
}

// Derive считает права userID. group == nil: личный чат.
func Derive(group *model.GroupInfo, userID string) Capabilities {
	c := Capabilities{UserID: userID, group: group}
	if group == nil {
		return c
	}
	c.Role = group.RoleOf(userID)
	staff := c.Role == model.RoleAdmin || c.Role == model.RoleCoAdmin
	admin := c.Role == model.RoleAdmin

	c.CanAddMembers = staff
	c.CanChangeGroupInfo = staff
	c.CanManageMessages = staff
	c.CanPin = staff
	c.CanChangeGroupSettings = admin
	c.CanDeleteGroup = admin
	c.CanPromoteToCoAdmin = admin
	c.CanDemoteFromCoAdmin = admin
	for id := range group.Members {
		if id != userID && c.CanRemoveMember(id) {
			c.RemovableMembers = append(c.RemovableMembers, id)
		}
	}
	sort.Strings(c.RemovableMembers)
	return c
}

// CanRemoveMember: ADMIN удаляет любого, CO_ADMIN только MEMBER.
func (c Capabilities) CanRemoveMember(targetID string) bool {
	switch c.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCoAdmin:
		return c.group.RoleOf(targetID) == model.RoleMember
	default:
		return false
	}
}

// CanDeleteMessage решает удаление сообщения автора authorID у всех.
func (c Capabilities) CanDeleteMessage(authorID string) bool {
	self := authorID == c.UserID
	switch c.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCoAdmin:
		return self || c.group.RoleOf(authorID) == model.RoleMember
	default:
		return self
	}
}
