package window

import (
	"fmt"
	"strings"

	"crmcal/internal/model"
)

// Filter is the type and responsible selection applied before windowing.
type Filter struct {
	// Types marks which event types are visible. Missing types are hidden.
	Types map[model.EventType]bool
	// Responsible restricts events to one responsible id; empty means all.
	Responsible string
}

// DefaultFilter shows every event type for every responsible.
func DefaultFilter() Filter {
	types := make(map[model.EventType]bool, len(model.AllEventTypes))
	for _, t := range model.AllEventTypes {
		types[t] = true
	}
	return Filter{Types: types}
}

// ParseTypes builds a visibility map from a comma separated list such as
// "due,presentation". An empty list shows every type.
func ParseTypes(s string) (map[model.EventType]bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFilter().Types, nil
	}
	types := make(map[model.EventType]bool, len(model.AllEventTypes))
	for _, t := range model.AllEventTypes {
		types[t] = false
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, ok := model.ParseEventType(part)
		if !ok {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		types[t] = true
	}
	return types, nil
}

// Stats counts visible events per type.
type Stats struct {
	Due          int `json:"due"`
	Consultation int `json:"consultation"`
	Presentation int `json:"presentation"`
	Total        int `json:"total"`
}

func (s *Stats) add(t model.EventType) {
	switch t {
	case model.EventDue:
		s.Due++
	case model.EventConsultation:
		s.Consultation++
	case model.EventPresentation:
		s.Presentation++
	}
	s.Total++
}

// View is the visible subset of events for one window and filter.
type View struct {
	Window Window        `json:"window"`
	Events []model.Event `json:"events"`
	Stats  Stats         `json:"stats"`
}

// Matches reports whether ev passes the type and responsible filters.
func (f Filter) Matches(ev model.Event) bool {
	if !f.Types[ev.Type] {
		return false
	}
	return f.Responsible == "" || ev.ResponsibleID == f.Responsible
}

// Apply selects the events that pass f and overlap w, and counts them.
// Events are returned in input order and never modified.
func Apply(events []model.Event, w Window, f Filter) View {
	v := View{Window: w, Events: make([]model.Event, 0)}
	for _, ev := range events {
		if !f.Matches(ev) || !w.Overlaps(ev.Start, ev.End) {
			continue
		}
		v.Events = append(v.Events, ev)
		v.Stats.add(ev.Type)
	}
	return v
}
