package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"crmcal/internal/model"
	"crmcal/internal/window"
)

var csvHeader = []string{"id", "type", "title", "start", "end", "responsible_id", "responsible", "card_key"}

// CSV writes one row per visible event. Times are RFC 3339 in the window's
// location.
func CSV(w io.Writer, v window.View, roster model.Roster) error {
	loc := v.Window.Start.Location()
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range v.Events {
		row := []string{
			ev.ID,
			string(ev.Type),
			ev.Title,
			ev.Start.In(loc).Format(time.RFC3339),
			ev.End.In(loc).Format(time.RFC3339),
			ev.ResponsibleID,
			roster.Name(ev.ResponsibleID),
			ev.CardKey,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", ev.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// exportEvent adds the resolved responsible name to an event.
type exportEvent struct {
	model.Event
	Responsible string `json:"responsible"`
}

type exportDoc struct {
	Window window.Window `json:"window"`
	Stats  window.Stats  `json:"stats"`
	Events []exportEvent `json:"events"`
}

// JSON writes the view as a single indented document.
func JSON(w io.Writer, v window.View, roster model.Roster) error {
	doc := exportDoc{
		Window: v.Window,
		Stats:  v.Stats,
		Events: make([]exportEvent, 0, len(v.Events)),
	}
	for _, ev := range v.Events {
		doc.Events = append(doc.Events, exportEvent{Event: ev, Responsible: roster.Name(ev.ResponsibleID)})
	}

	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
