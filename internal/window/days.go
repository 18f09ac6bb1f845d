package window

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "crmcal/internal/log"
	"crmcal/internal/model"
)

// Days enumerates the start of every calendar day the window touches, in the
// window's location.
func Days(w Window) []time.Time {
	if !w.End.After(w.Start) {
		return nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: StartOfDay(w.Start),
		Until:   w.End.Add(-time.Nanosecond),
	})
	if err != nil {
		appLog.Error("window: failed to build daily rule", err, "start", w.Start, "end", w.End)
		return nil
	}
	return r.All()
}

// Day holds the visible events that start (or continue) on one day.
type Day struct {
	Date   time.Time     `json:"date"`
	Events []model.Event `json:"events"`
}

// GroupByDay buckets v's events into the days of its window, sorted by start
// time within each day. Events that began before the window are listed on
// its first day. Days without events are kept so an agenda can show gaps.
func GroupByDay(v View) []Day {
	days := Days(v.Window)
	out := make([]Day, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		out[i] = Day{Date: d, Events: []model.Event{}}
		index[dayKey(d)] = i
	}
	if len(out) == 0 {
		return out
	}

	loc := v.Window.Start.Location()
	for _, ev := range v.Events {
		at := ev.Start.In(loc)
		if at.Before(v.Window.Start) {
			at = v.Window.Start
		}
		i, ok := index[dayKey(at)]
		if !ok {
			continue
		}
		out[i].Events = append(out[i].Events, ev)
	}

	for i := range out {
		evs := out[i].Events
		sort.SliceStable(evs, func(a, b int) bool {
			return evs[a].Start.Before(evs[b].Start)
		})
	}
	return out
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
