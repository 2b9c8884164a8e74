package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/projector"
)

const previewWidth = 48

var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func printChats(w io.Writer, rows []projector.ChatRow, now time.Time) {
	if len(rows) == 0 {
		fmt.Fprintln(w, dim("no chats"))
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = previewWidth
	tbl.AddRow("", "CHAT", "LAST MESSAGE", "WHEN", "UNREAD")
	for _, r := range rows {
		mark := " "
		if r.IsPinned {
			mark = "*"
		}
		preview := r.LastMessage.Content
		if r.HasDraft {
			preview = red("Draft: ") + r.Draft
		}
		when := ""
		if !r.LastMessageAt().IsZero() {
			when = humanize.RelTime(r.LastMessageAt(), now, "ago", "from now")
		}
		unread := ""
		if r.UnreadCount > 0 {
			unread = green(humanize.Comma(int64(r.UnreadCount)))
		}
		tbl.AddRow(mark, bold(r.Name), preview, dim(when), unread)
	}
	fmt.Fprintln(w, tbl)
}

func printMessages(w io.Writer, viewerID string, items []projector.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, dim("no messages"))
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = previewWidth
	for _, it := range items {
		switch it.Kind {
		case projector.ItemDateSeparator:
			label := it.Label
			if it.Locked {
				label += " (locked)"
			}
			tbl.AddRow("", bold("── "+label+" ──"), "", "")
		case projector.ItemMessage:
			tbl.AddRow(clock(it.Message), sender(viewerID, it.Message), body(it.Message), status(viewerID, it.Message))
		case projector.ItemCarousel:
			first := it.Messages[0]
			text := yellow(fmt.Sprintf("[%d images]", len(it.Messages)))
			tbl.AddRow(clock(first), sender(viewerID, first), text, status(viewerID, it.Messages[len(it.Messages)-1]))
		}
	}
	fmt.Fprintln(w, tbl)
}

func clock(m *model.Message) string {
	return dim(m.Timestamp.Format("15:04"))
}

func sender(viewerID string, m *model.Message) string {
	if m.SenderID == viewerID {
		return cyan("you")
	}
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}

func body(m *model.Message) string {
	if m.DeleteForEveryone {
		return dim("This message was deleted")
	}
	var b strings.Builder
	switch m.MessageType {
	case model.MessageTypeText:
	case model.MessageTypePoll:
		b.WriteString(yellow("[poll] "))
	default:
		b.WriteString(yellow("[" + string(m.MessageType) + "] "))
		if m.FileInfo != nil && m.FileInfo.Size != "" {
			b.WriteString(dim(fileSize(m.FileInfo.Size)) + " ")
		}
	}
	b.WriteString(m.Content)
	if m.IsEdited {
		b.WriteString(dim(" (edited)"))
	}
	if len(m.Reactions) > 0 {
		b.WriteString(" ")
		emojis := make([]string, 0, len(m.Reactions))
		for emoji := range m.Reactions {
			emojis = append(emojis, emoji)
		}
		sort.Strings(emojis)
		for _, emoji := range emojis {
			b.WriteString(fmt.Sprintf("%s%d", emoji, len(m.Reactions[emoji])))
		}
	}
	return b.String()
}

// fileSize нормализует размер вложения; нераспознанная строка печатается как есть.
func fileSize(raw string) string {
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return raw
	}
	return humanize.IBytes(n)
}

func status(viewerID string, m *model.Message) string {
	if m.SenderID != viewerID {
		return ""
	}
	if m.Status == model.MessageStatusFailed {
		return red(string(m.Status))
	}
	return dim(string(m.Status))
}
