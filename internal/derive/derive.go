package derive

import (
	"strings"
	"time"

	appLog "crmcal/internal/log"
	"crmcal/internal/model"
)

// Default custom field keys for the two custom date sources.
const (
	DefaultConsultationField = "data-da-consultoria"
	DefaultPresentationField = "data-da-apresenta-o"
)

// Config controls how records are mapped to events.
type Config struct {
	// ConsultationField / PresentationField are the custom field keys whose
	// first string element holds the date.
	ConsultationField string
	PresentationField string

	// Location is used for date-times sent without an offset. If nil,
	// time.Local is used.
	Location *time.Location
}

// Skip describes a date source that was present but did not parse.
type Skip struct {
	RecordID string
	Source   model.EventType
	Raw      string
}

// Result wraps derived events and the date values that were dropped.
type Result struct {
	Events  []model.Event
	Skipped []Skip
}

// Deriver maps CRM records to calendar events.
type Deriver struct {
	cfg Config
}

// New returns a Deriver, filling in default field keys.
func New(cfg Config) *Deriver {
	if cfg.ConsultationField == "" {
		cfg.ConsultationField = DefaultConsultationField
	}
	if cfg.PresentationField == "" {
		cfg.PresentationField = DefaultPresentationField
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Deriver{cfg: cfg}
}

// ToEvents derives events with the default configuration.
func ToEvents(records []model.Record) []model.Event {
	return New(Config{}).Derive(records).Events
}

// Derive emits up to three events per record, one per usable date source, in
// record order and due → consultation → presentation within a record.
// Missing dates are ignored; unparseable ones are reported in Result.Skipped
// and never fail the call.
func (d *Deriver) Derive(records []model.Record) Result {
	var res Result
	res.Events = make([]model.Event, 0, len(records))

	for _, rec := range records {
		sources := [...]struct {
			typ model.EventType
			raw string
		}{
			{model.EventDue, rec.Due()},
			{model.EventConsultation, rec.CustomString(d.cfg.ConsultationField)},
			{model.EventPresentation, rec.CustomString(d.cfg.PresentationField)},
		}

		for _, src := range sources {
			if strings.TrimSpace(src.raw) == "" {
				continue
			}
			start, ok := ParseDateTime(src.raw, d.cfg.Location)
			if !ok {
				res.Skipped = append(res.Skipped, Skip{RecordID: rec.ID, Source: src.typ, Raw: src.raw})
				appLog.Debug("derive: unparseable date skipped", "record_id", rec.ID, "source", src.typ, "value", src.raw)
				continue
			}
			res.Events = append(res.Events, newEvent(rec, src.typ, start))
		}
	}

	return res
}

func newEvent(rec model.Record, typ model.EventType, start time.Time) model.Event {
	return model.Event{
		ID:            rec.ID + "-" + string(typ),
		Type:          typ,
		Title:         rec.Title,
		Start:         start,
		End:           start.Add(model.EventDuration),
		ResponsibleID: rec.Responsible(),
		PanelID:       rec.PanelID,
		CardKey:       rec.CardKey(),
	}
}

// zonedLayouts cover the offset spellings ISO-8601 allows: "Z", ±hh:mm,
// ±hhmm and ±hh, with seconds or minutes optional.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"2006-01-02T15Z07:00",
	"2006-01-02T15Z0700",
	"2006-01-02T15Z07",
}

// localLayouts are accepted for values without an explicit offset.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses the ISO-8601 forms the CRM emits. Values with an
// offset or "Z" keep it; values without one are read in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
