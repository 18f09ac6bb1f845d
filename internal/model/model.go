package model

import "time"

// Record is a CRM card as returned by the panel card listing endpoint.
// Only the fields crmcal reads are typed; everything else the API sends is
// ignored on decode.
type Record struct {
	ID                string         `json:"id"`
	PanelID           string         `json:"panelId"`
	Title             string         `json:"title"`
	Key               *string        `json:"key,omitempty"`
	DueDate           *string        `json:"dueDate,omitempty"`
	ResponsibleUserID *string        `json:"responsibleUserId,omitempty"`
	CustomFields      map[string]any `json:"customFields,omitempty"`
}

// CustomString returns the first element of a string-array custom field.
// Missing fields, non-array values and non-string first elements yield "".
func (r Record) CustomString(name string) string {
	v, ok := r.CustomFields[name]
	if !ok {
		return ""
	}
	switch vals := v.(type) {
	case []any:
		if len(vals) == 0 {
			return ""
		}
		s, _ := vals[0].(string)
		return s
	case []string:
		if len(vals) == 0 {
			return ""
		}
		return vals[0]
	default:
		return ""
	}
}

// Due returns the raw due date, or "" when unset.
func (r Record) Due() string {
	return deref(r.DueDate)
}

// CardKey returns the short card key, or "" when unset.
func (r Record) CardKey() string {
	return deref(r.Key)
}

// Responsible returns the responsible user id, or "" when unset.
func (r Record) Responsible() string {
	return deref(r.ResponsibleUserID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// EventType tags which date field of a record produced an Event.
type EventType string

const (
	EventDue          EventType = "due"
	EventConsultation EventType = "consultation"
	EventPresentation EventType = "presentation"
)

// AllEventTypes lists the event types in derivation order.
var AllEventTypes = []EventType{EventDue, EventConsultation, EventPresentation}

// ParseEventType reports whether s names a known event type.
func ParseEventType(s string) (EventType, bool) {
	for _, t := range AllEventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// EventDuration is the fixed length of every derived event.
const EventDuration = 90 * time.Minute

// Event is a calendar entry derived from one date field of a Record.
type Event struct {
	// ID is the record id joined with the event type, e.g. "abc-due".
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	ResponsibleID string    `json:"responsible_id,omitempty"`
	PanelID       string    `json:"panel_id,omitempty"`
	CardKey       string    `json:"card_key,omitempty"`
}
