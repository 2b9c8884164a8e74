package projector

import (
	"testing"
	"time"

	"github.com/chatsync/internal/model"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func conv(id, name string, typ model.ConversationType, pinned, locked bool, last time.Time) *model.Conversation {
	return &model.Conversation{
		ID:               id,
		ConversationType: typ,
		Name:             name,
		IsPinned:         pinned,
		IsLocked:         locked,
		LastMessage:      model.LastMessage{Timestamp: last},
	}
}

func rowIDs(rows []ChatRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestChatListPinnedFirst(t *testing.T) {
	a := conv("A", "alice", model.ConversationTypeIndividual, false, false, t0.Add(time.Hour))
	b := conv("B", "bob", model.ConversationTypeIndividual, true, false, t0)
	got := rowIDs(ChatList([]*model.Conversation{a, b}, ChatListParams{}))
	if !sameIDs(got, []string{"B", "A"}) {
		t.Errorf("order = %v, want [B A]", got)
	}
}

func TestChatListOrdering(t *testing.T) {
	convs := []*model.Conversation{
		conv("c", "c", model.ConversationTypeGroup, false, false, t0),
		conv("b", "b", model.ConversationTypeGroup, false, false, t0),
		conv("d", "d", model.ConversationTypeGroup, false, false, t0.Add(time.Minute)),
		conv("p2", "p2", model.ConversationTypeGroup, true, false, t0),
		conv("p1", "p1", model.ConversationTypeGroup, true, false, t0.Add(time.Hour)),
	}
	got := rowIDs(ChatList(convs, ChatListParams{Filter: ChatFilterAll}))
	want := []string{"p1", "p2", "d", "b", "c"}
	if !sameIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestChatListLockedPartition(t *testing.T) {
	convs := []*model.Conversation{
		conv("open", "open", model.ConversationTypeIndividual, false, false, t0),
		conv("locked", "locked", model.ConversationTypeIndividual, false, true, t0),
	}
	if got := rowIDs(ChatList(convs, ChatListParams{})); !sameIDs(got, []string{"open"}) {
		t.Errorf("normal view = %v", got)
	}
	if got := rowIDs(ChatList(convs, ChatListParams{LockedView: true})); !sameIDs(got, []string{"locked"}) {
		t.Errorf("locked view = %v", got)
	}
}

func TestChatListFilters(t *testing.T) {
	convs := []*model.Conversation{
		conv("i", "Alice Smith", model.ConversationTypeIndividual, false, false, t0),
		conv("g", "Family", model.ConversationTypeGroup, false, false, t0.Add(time.Second)),
	}
	tests := []struct {
		name string
		p    ChatListParams
		want []string
	}{
		{"all", ChatListParams{Filter: ChatFilterAll}, []string{"g", "i"}},
		{"chat", ChatListParams{Filter: ChatFilterChat}, []string{"i"}},
		{"group", ChatListParams{Filter: ChatFilterGroup}, []string{"g"}},
		{"notifications", ChatListParams{Filter: ChatFilterNotifications}, []string{}},
		{"search case-insensitive", ChatListParams{Search: "SMI"}, []string{"i"}},
		{"search no match", ChatListParams{Search: "zed"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowIDs(ChatList(convs, tt.p)); !sameIDs(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatListDrafts(t *testing.T) {
	convs := []*model.Conversation{conv("i", "x", model.ConversationTypeIndividual, false, false, t0)}
	rows := ChatList(convs, ChatListParams{Drafts: map[string]string{"i": "half typed"}})
	if len(rows) != 1 || !rows[0].HasDraft || rows[0].Draft != "half typed" {
		t.Errorf("draft flag missing: %+v", rows)
	}
}

func TestParseChatFilter(t *testing.T) {
	for in, want := range map[string]ChatFilter{
		"Chat": ChatFilterChat, "individual": ChatFilterChat, "GROUP": ChatFilterGroup,
		"notifications": ChatFilterNotifications, "": ChatFilterAll, "weird": ChatFilterAll,
	} {
		if got := ParseChatFilter(in); got != want {
			t.Errorf("ParseChatFilter(%q) = %q, want %q", in, got, want)
		}
	}
}
