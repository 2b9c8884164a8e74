// Package projector строит готовые к отрисовке представления из снимков сторов и состояния оверлея.
// Представления пересчитываются целиком на каждую новую ревизию: чатов и сообщений немного,
// инкрементальные диффы не нужны.
package projector

import (
	"sort"
	"strings"

	"github.com/chatsync/internal/model"
)

type ChatFilter string

const (
	ChatFilterAll           ChatFilter = "all"
	ChatFilterChat          ChatFilter = "chat"
	ChatFilterGroup         ChatFilter = "group"
	ChatFilterNotifications ChatFilter = "notifications"
)

// ParseChatFilter принимает также "individual" как синоним "chat". Неизвестное значение: all.
func ParseChatFilter(s string) ChatFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chat", "chats", "individual":
		return ChatFilterChat
	case "group", "groups":
		return ChatFilterGroup
	case "notifications":
		return ChatFilterNotifications
	default:
		return ChatFilterAll
	}
}

type ChatListParams struct {
	Filter     ChatFilter
	Search     string
	LockedView bool
	// Drafts: текстовые черновики по id чата, только для флага HasDraft.
	Drafts map[string]string
}

type ChatRow struct {
	*model.Conversation
	HasDraft bool   `json:"has_draft"`
	Draft    string `json:"draft,omitempty"`
}

// ChatList применяет по порядку: разбиение по блокировке, фильтр типа, поиск по имени, сортировку.
func ChatList(convs []*model.Conversation, p ChatListParams) []ChatRow {
	if p.Filter == ChatFilterNotifications {
		return []ChatRow{}
	}
	term := strings.ToLower(strings.TrimSpace(p.Search))
	rows := make([]ChatRow, 0, len(convs))
	for _, c := range convs {
		// Строгое разбиение: в режиме скрытых чатов только заблокированные, иначе только открытые.
		if c.IsLocked != p.LockedView {
			continue
		}
		switch p.Filter {
		case ChatFilterChat:
			if c.ConversationType != model.ConversationTypeIndividual {
				continue
			}
		case ChatFilterGroup:
			if c.ConversationType != model.ConversationTypeGroup {
				continue
			}
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Name), term) {
			continue
		}
		row := ChatRow{Conversation: c}
		if d, ok := p.Drafts[c.ID]; ok && d != "" {
			row.HasDraft = true
			row.Draft = d
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		ta, tb := a.LastMessageAt(), b.LastMessageAt()
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID < b.ID
	})
	return rows
}
