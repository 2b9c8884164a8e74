package overlay

import (
	"strings"
	"time"
)

type TextDraft struct {
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	SavedAt        time.Time `json:"saved_at"`
}

// SaveDraft сохраняет черновик; пустой текст удаляет его.
func (o *Overlay) SaveDraft(conversationID, content string, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if strings.TrimSpace(content) == "" {
		delete(o.drafts, conversationID)
		return
	}
	o.drafts[conversationID] = TextDraft{ConversationID: conversationID, Content: content, SavedAt: now}
}

func (o *Overlay) Draft(conversationID string) (TextDraft, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.drafts[conversationID]
	return d, ok
}

func (o *Overlay) ClearDraft(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.drafts, conversationID)
}

// Drafts: содержимое всех черновиков по id чата (для отметок в списке чатов).
func (o *Overlay) Drafts() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.drafts))
	for id, d := range o.drafts {
		out[id] = d.Content
	}
	return out
}

// CleanupDrafts удаляет черновики старше draftTTL и возвращает их число.
func (o *Overlay) CleanupDrafts(now time.Time) int {
	if o.draftTTL <= 0 {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for id, d := range o.drafts {
		if now.Sub(d.SavedAt) > o.draftTTL {
			delete(o.drafts, id)
			removed++
		}
	}
	return removed
}
