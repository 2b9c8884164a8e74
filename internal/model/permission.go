package model

// Role: роль участника группы. Порядок полномочий: ADMIN > CO_ADMIN > MEMBER.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCoAdmin Role = "CO_ADMIN"
	RoleMember  Role = "MEMBER"
)

// GroupInfo принадлежит бэкенду, ядро читает его только для вывода прав.
type GroupInfo struct {
	ConversationID string          `json:"conversation_id"`
	Members        map[string]Role `json:"members"`
	MemberCount    int             `json:"member_count"`
	Description    string          `json:"description,omitempty"`
}

// RoleOf возвращает роль пользователя; пустая строка: не участник.
func (g *GroupInfo) RoleOf(userID string) Role {
	if g == nil {
		return ""
	}
	return g.Members[userID]
}
