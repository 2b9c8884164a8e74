// Package overlay держит клиентское состояние поверх синхронизированных данных: выделение,
// черновики ответа/правки, дни, открытые на сессию, режим скрытых чатов.
// Ничего отсюда не пишется на бэкенд, сторы оверлей не меняет.
package overlay

import (
	"sync"
	"time"

	"github.com/chatsync/internal/model"
)

// Selection: снимок режима выделения чата.
type Selection struct {
	Active   bool     `json:"active"`
	Selected []string `json:"selected"`
}

// ReplyDraft и EditDraft взаимоисключающие: открытие одного закрывает другой.
type ReplyDraft struct {
	MessageID string `json:"message_id"`
}

type EditDraft struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type conversationState struct {
	selecting bool
	selected  model.Set
	reply     *ReplyDraft
	edit      *EditDraft
	unlocked  model.Set
}

type Overlay struct {
	mu         sync.Mutex
	lockedView bool
	convs      map[string]*conversationState
	drafts     map[string]TextDraft
	draftTTL   time.Duration
}

// New создаёт оверлей; draftTTL: срок жизни текстовых черновиков.
func New(draftTTL time.Duration) *Overlay {
	return &Overlay{
		convs:    make(map[string]*conversationState),
		drafts:   make(map[string]TextDraft),
		draftTTL: draftTTL,
	}
}

// state вызывается под o.mu.
func (o *Overlay) state(conversationID string) *conversationState {
	st, ok := o.convs[conversationID]
	if !ok {
		st = &conversationState{selected: model.NewSet(), unlocked: model.NewSet()}
		o.convs[conversationID] = st
	}
	return st
}

func (o *Overlay) LockedView() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lockedView
}

func (o *Overlay) SetLockedView(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lockedView = on
}

// EnterSelectionMode включает выделение с начальным набором. Пустой набор режим не включает.
func (o *Overlay) EnterSelectionMode(conversationID string, ids []string) Selection {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state(conversationID)
	st.selected = model.NewSet(ids...)
	st.selecting = st.selected.Len() > 0
	return st.snapshot()
}

// ToggleSelection: если хоть один из ids уже выделен, все ids снимаются, иначе добавляются
// (карусель выделяется и снимается целиком). Пустое выделение выключает режим.
func (o *Overlay) ToggleSelection(conversationID string, ids []string) Selection {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state(conversationID)
	anySelected := false
	for _, id := range ids {
		if st.selected.Has(id) {
			anySelected = true
			break
		}
	}
	for _, id := range ids {
		if anySelected {
			st.selected.Remove(id)
		} else {
			st.selected.Add(id)
		}
	}
	st.selecting = st.selected.Len() > 0
	return st.snapshot()
}

func (o *Overlay) ExitSelectionMode(conversationID string) Selection {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state(conversationID)
	st.selecting = false
	st.selected = model.NewSet()
	return st.snapshot()
}

func (o *Overlay) Selection(conversationID string) Selection {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state(conversationID).snapshot()
}

func (st *conversationState) snapshot() Selection {
	return Selection{Active: st.selecting, Selected: st.selected.Slice()}
}

func (o *Overlay) StartReply(conversationID, messageID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state(conversationID)
	st.reply = &ReplyDraft{MessageID: messageID}
	st.edit = nil
}

func (o *Overlay) StartEdit(conversationID, messageID, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state(conversationID)
	st.edit = &EditDraft{MessageID: messageID, Content: content}
	st.reply = nil
}

func (o *Overlay) CancelReply(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(conversationID).reply = nil
}

func (o *Overlay) CancelEdit(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(conversationID).edit = nil
}

// Compose возвращает активные черновики ответа и правки (не больше одного из них не nil).
func (o *Overlay) Compose(conversationID string) (*ReplyDraft, *EditDraft) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.state(conversationID)
	var r *ReplyDraft
	var e *EditDraft
	if st.reply != nil {
		v := *st.reply
		r = &v
	}
	if st.edit != nil {
		v := *st.edit
		e = &v
	}
	return r, e
}

// UnlockForSession открывает день до выхода из чата.
func (o *Overlay) UnlockForSession(conversationID, date string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(conversationID).unlocked.Add(date)
}

// RevokeSessionUnlock снова прячет день, открытый на сессию.
func (o *Overlay) RevokeSessionUnlock(conversationID, date string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(conversationID).unlocked.Remove(date)
}

func (o *Overlay) SessionUnlocked(conversationID string) model.Set {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state(conversationID).unlocked.Clone()
}

// Leave сбрасывает состояние чата при закрытии: дни сессии, черновики ответа/правки, выделение.
// Текстовые черновики остаются.
func (o *Overlay) Leave(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.convs, conversationID)
}
