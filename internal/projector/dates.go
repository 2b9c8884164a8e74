package projector

import "time"

const dateLayout = "2006-01-02"

// LocalDate: календарная дата сообщения в часовом поясе пользователя (не UTC).
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateLayout)
}

// SeparatorLabel: "Today", "Yesterday" или полная дата.
func SeparatorLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	day := LocalDate(t, loc)
	switch day {
	case LocalDate(now, loc):
		return "Today"
	case LocalDate(now.In(loc).AddDate(0, 0, -1), loc):
		return "Yesterday"
	}
	return t.In(loc).Format("January 2, 2006")
}

type TimeGroups[T any] struct {
	Today    []T `json:"today"`
	ThisWeek []T `json:"this_week"`
	Earlier  []T `json:"earlier"`
}

// GroupByTime раскладывает элементы по давности: меньше суток, меньше недели, остальное.
// Метки из будущего попадают в неделю.
func GroupByTime[T any](items []T, ts func(T) time.Time, now time.Time) TimeGroups[T] {
	var g TimeGroups[T]
	for _, it := range items {
		switch days := floorDays(now.Sub(ts(it))); {
		case days == 0:
			g.Today = append(g.Today, it)
		case days < 7:
			g.ThisWeek = append(g.ThisWeek, it)
		default:
			g.Earlier = append(g.Earlier, it)
		}
	}
	return g
}

// floorDays округляет вниз, в том числе для отрицательных интервалов.
func floorDays(d time.Duration) int {
	days := d / (24 * time.Hour)
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return int(days)
}
