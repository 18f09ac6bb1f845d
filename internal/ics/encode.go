package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"crmcal/internal/crm"
	"crmcal/internal/model"
)

const (
	productID   = "-//crmcal//CRM agenda//EN"
	uidDomain   = "crmcal"
	defaultName = "CRM agenda"
)

// Options controls calendar level properties of the feed.
type Options struct {
	// Name is published as X-WR-CALNAME.
	Name string
	// DetailHost, when set, adds a URL property pointing at the card.
	DetailHost string
	// PanelID is used for card links of events without their own panel id.
	PanelID string
	// Roster resolves responsible ids to display names for DESCRIPTION.
	Roster model.Roster
	// Now is used for DTSTAMP. Zero means time.Now.
	Now time.Time
}

// Encode writes events as a PUBLISH calendar. Times are emitted in UTC.
func Encode(w io.Writer, events []model.Event, opts Options) error {
	if opts.Name == "" {
		opts.Name = defaultName
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(opts.Name)

	for _, ev := range events {
		ve := cal.AddEvent(UID(ev.ID))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		ve.AddProperty(ical.ComponentPropertyCategories, string(ev.Type))
		if ev.ResponsibleID != "" {
			ve.SetDescription(opts.Roster.Name(ev.ResponsibleID))
		}
		panel := ev.PanelID
		if panel == "" {
			panel = opts.PanelID
		}
		if link, err := crm.CardURL(opts.DetailHost, panel, ev.CardKey); err == nil {
			ve.SetProperty(ical.ComponentPropertyUrl, link)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// UID returns the globally unique identifier used for an event id.
func UID(eventID string) string {
	return eventID + "@" + uidDomain
}
