package window

import (
	"fmt"
	"strings"
	"time"
)

// Range names a preset visible window.
type Range string

const (
	RangeToday    Range = "today"
	RangeTomorrow Range = "tomorrow"
	RangeWeek     Range = "week"
	RangeMonth    Range = "month"
	RangeCustom   Range = "custom"
)

// Ranges lists every preset in toolbar order.
var Ranges = []Range{RangeToday, RangeTomorrow, RangeWeek, RangeMonth, RangeCustom}

// ParseRange accepts a preset name in any case. Empty input means week.
func ParseRange(s string) (Range, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RangeWeek, nil
	}
	for _, r := range Ranges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown range %q (want today, tomorrow, week, month or custom)", s)
}

// Window is the visible instant range. Events overlap it when
// event.End > Start and event.Start < End.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [start, end) overlaps the window.
func (w Window) Overlaps(start, end time.Time) bool {
	return end.After(w.Start) && start.Before(w.End)
}

// Query is the user's range selection. From/To are only read for
// RangeCustom; nil means the bound is not set.
type Query struct {
	Range Range
	From  *time.Time
	To    *time.Time
}

// Bounds derives the visible window for q relative to now. Day boundaries are
// taken in now's location.
//
// The week preset covers Monday 00:00 through the end of Saturday.
func Bounds(q Query, now time.Time) Window {
	switch q.Range {
	case RangeToday:
		return dayWindow(now)
	case RangeTomorrow:
		return dayWindow(now.AddDate(0, 0, 1))
	case RangeMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		last := first.AddDate(0, 1, -1)
		return Window{Start: first, End: EndOfDay(last)}
	case RangeCustom:
		switch {
		case q.From != nil && q.To != nil:
			return Window{Start: StartOfDay(*q.From), End: EndOfDay(*q.To)}
		case q.From != nil:
			return dayWindow(*q.From)
		case q.To != nil:
			return dayWindow(*q.To)
		default:
			return dayWindow(now)
		}
	default:
		monday := StartOfWeek(now)
		return Window{Start: monday, End: EndOfDay(monday.AddDate(0, 0, 5))}
	}
}

func dayWindow(t time.Time) Window {
	return Window{Start: StartOfDay(t), End: EndOfDay(t)}
}

// StartOfDay returns 00:00 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartOfWeek returns Monday 00:00 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// ParseDay parses a user-entered day as dd/mm/yyyy or yyyy-mm-dd in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid day %q (want dd/mm/yyyy or yyyy-mm-dd)", s)
}

// MaxCustomDays is the longest custom range ParseQuery accepts.
const MaxCustomDays = 366

// ParseQuery builds a Query from user input. Blank from/to leave the bound
// unset. When rangeName is blank but a bound is given, the range is custom.
func ParseQuery(rangeName, from, to string, loc *time.Location) (Query, error) {
	r, err := ParseRange(rangeName)
	if err != nil {
		return Query{}, err
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if strings.TrimSpace(rangeName) == "" && (from != "" || to != "") {
		r = RangeCustom
	}

	q := Query{Range: r}
	if from != "" {
		d, err := ParseDay(from, loc)
		if err != nil {
			return Query{}, fmt.Errorf("from: %w", err)
		}
		q.From = &d
	}
	if to != "" {
		d, err := ParseDay(to, loc)
		if err != nil {
			return Query{}, fmt.Errorf("to: %w", err)
		}
		q.To = &d
	}
	if q.From != nil && q.To != nil {
		if q.To.Before(*q.From) {
			return Query{}, fmt.Errorf("to %s is before from %s", to, from)
		}
		if !q.To.Before(q.From.AddDate(0, 0, MaxCustomDays)) {
			return Query{}, fmt.Errorf("custom range %s - %s is longer than %d days", from, to, MaxCustomDays)
		}
	}
	return q, nil
}
