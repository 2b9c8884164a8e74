package projector

import (
	"strings"
	"time"

	"github.com/chatsync/internal/model"
)

type MessageFilter string

const (
	MessageFilterAll      MessageFilter = "all"
	MessageFilterImage    MessageFilter = "image"
	MessageFilterVideo    MessageFilter = "video"
	MessageFilterDocument MessageFilter = "document"
	MessageFilterLink     MessageFilter = "link"
)

func ParseMessageFilter(s string) MessageFilter {
	switch f := MessageFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case MessageFilterImage, MessageFilterVideo, MessageFilterDocument, MessageFilterLink:
		return f
	default:
		return MessageFilterAll
	}
}

// carouselMin: минимальная длина серии медиа для карусели.
const carouselMin = 2

type ItemKind string

const (
	ItemDateSeparator ItemKind = "date_separator"
	ItemMessage       ItemKind = "message"
	ItemCarousel      ItemKind = "carousel"
)

type Item struct {
	Kind     ItemKind         `json:"kind"`
	Date     string           `json:"date"`
	Label    string           `json:"label,omitempty"`
	Locked   bool             `json:"locked,omitempty"`
	Message  *model.Message   `json:"message,omitempty"`
	Messages []*model.Message `json:"messages,omitempty"`
}

type MessageListParams struct {
	ViewerID string
	Filter   MessageFilter
	Search   string
	// LockedDates: постоянно заблокированные дни чата (YYYY-MM-DD).
	LockedDates model.Set
	// Unlocked: дни, открытые до выхода из чата.
	Unlocked     model.Set
	ShowSecurity bool
	Location     *time.Location
	Now          time.Time
}

func (p MessageListParams) hidden(day string) bool {
	return p.LockedDates.Has(day) && !p.Unlocked.Has(day)
}

// MessageList превращает лог чата в последовательность разделителей дат, сообщений и каруселей.
func MessageList(log []*model.Message, p MessageListParams) []Item {
	if p.Filter == "" {
		p.Filter = MessageFilterAll
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	term := strings.ToLower(strings.TrimSpace(p.Search))
	filtered := make([]*model.Message, 0, len(log))
	for _, m := range log {
		if !m.VisibleTo(p.ViewerID) {
			continue
		}
		if !matchFilter(m, p.Filter) || !matchSearch(m, term) {
			continue
		}
		filtered = append(filtered, m)
	}

	grouping := p.Filter == MessageFilterAll && term == ""
	items := make([]Item, 0, len(filtered)+4)
	lastDate := ""
	for i := 0; i < len(filtered); i++ {
		m := filtered[i]
		day := LocalDate(m.Timestamp, p.Location)
		if day != lastDate {
			items = append(items, Item{
				Kind:   ItemDateSeparator,
				Date:   day,
				Label:  SeparatorLabel(m.Timestamp, p.Now, p.Location),
				Locked: p.LockedDates.Has(day),
			})
			lastDate = day
		}
		if p.hidden(day) {
			continue
		}
		// скрытое уведомление безопасности всё равно рвёт серию медиа и держит разделитель дня
		if m.MessageType == model.MessageTypeSecurity && !p.ShowSecurity {
			continue
		}

		if grouping && isGroupable(m) {
			j := i + 1
			for j < len(filtered) {
				next := filtered[j]
				if !isGroupable(next) || next.SenderID != m.SenderID {
					break
				}
				// серия не пересекает разделитель даты
				if LocalDate(next.Timestamp, p.Location) != day {
					break
				}
				j++
			}
			if j-i >= carouselMin {
				run := make([]*model.Message, 0, j-i)
				for _, rm := range filtered[i:j] {
					run = append(run, render(rm))
				}
				items = append(items, Item{Kind: ItemCarousel, Date: day, Messages: run})
				i = j - 1
				continue
			}
		}
		items = append(items, Item{Kind: ItemMessage, Date: day, Message: render(m)})
	}
	return items
}

// render никогда не отдаёт тело сообщения, удалённого у всех.
func render(m *model.Message) *model.Message {
	if m.DeleteForEveryone {
		return m.Redacted()
	}
	return m
}

func isGroupable(m *model.Message) bool {
	return m.MessageType.IsMedia() && !m.DeleteForEveryone
}

func matchFilter(m *model.Message, f MessageFilter) bool {
	switch f {
	case MessageFilterAll:
		return true
	case MessageFilterLink:
		return !m.DeleteForEveryone && m.HasURL()
	default:
		return !m.DeleteForEveryone && string(m.MessageType) == string(f)
	}
}

func matchSearch(m *model.Message, term string) bool {
	if term == "" {
		return true
	}
	if m.DeleteForEveryone {
		return false
	}
	if m.MessageType == model.MessageTypeDocument && m.FileInfo != nil && m.FileInfo.Name != "" {
		return strings.Contains(strings.ToLower(m.FileInfo.Name), term)
	}
	return strings.Contains(strings.ToLower(m.Content), term)
}
