package web

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	appLog "crmcal/internal/log"
	"crmcal/internal/model"
	"crmcal/internal/pipeline"
	"crmcal/internal/render"
	"crmcal/internal/window"
)

type pageEvent struct {
	ID          string
	Time        string
	Type        model.EventType
	TypeLabel   string
	Title       string
	Responsible string
	DetailURL   string
}

type pageDay struct {
	Label  string
	Events []pageEvent
}

// navLink is a preset shortcut that keeps the active filters.
type navLink struct {
	Range  window.Range
	Href   string
	Active bool
}

type pageData struct {
	Range       window.Range
	Ranges      []window.Range
	Nav         []navLink
	From        string
	To          string
	Responsible string
	Types       string
	People      []model.Person
	Heading     string
	Days        []pageDay
	Stats       window.Stats
	LoadedAt    string
	Stale       string
	Error       string
}

// handleCalendar renders the agenda page. The root element carries
// data-ready="true" so headless captures know rendering is complete.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Ranges:      window.Ranges,
		From:        q.Get("from"),
		To:          q.Get("to"),
		Responsible: q.Get("responsible"),
		Types:       q.Get("types"),
		People:      s.roster.People(),
	}
	if r, err := window.ParseRange(q.Get("range")); err == nil {
		data.Range = r
	}
	status := http.StatusOK

	sel, err := s.parseSelection(q)
	snap, curErr := s.source.Current()
	switch {
	case err != nil:
		status = http.StatusBadRequest
		data.Error = err.Error()
	case errors.Is(curErr, pipeline.ErrNotLoaded):
		status = http.StatusServiceUnavailable
		data.Error = curErr.Error()
	default:
		if curErr != nil {
			data.Stale = curErr.Error()
		}
		s.fillPage(&data, snap, sel)
	}
	data.Nav = navLinks(data.Range, data.Responsible, data.Types)

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "calendar.html", data); err != nil {
		appLog.Error("failed to render calendar page", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func navLinks(current window.Range, responsible, types string) []navLink {
	links := make([]navLink, 0, len(window.Ranges))
	for _, r := range window.Ranges {
		if r == window.RangeCustom {
			continue
		}
		v := url.Values{"range": {string(r)}}
		if responsible != "" {
			v.Set("responsible", responsible)
		}
		if types != "" {
			v.Set("types", types)
		}
		links = append(links, navLink{Range: r, Href: "?" + v.Encode(), Active: r == current})
	}
	return links
}

func (s *Server) fillPage(data *pageData, snap pipeline.Snapshot, sel selection) {
	v := s.apply(snap, sel)
	data.Range = sel.query.Range
	data.Stats = v.Stats
	data.LoadedAt = snap.LoadedAt.In(s.loc).Format("02/01/2006 15:04")
	data.Heading = v.Window.Start.Format("02/01/2006") + " - " + v.Window.End.Format("02/01/2006")

	for _, day := range window.GroupByDay(v) {
		pd := pageDay{Label: day.Date.Format("Mon 02/01"), Events: make([]pageEvent, 0, len(day.Events))}
		for _, ev := range day.Events {
			link, _ := s.detailURL(ev)
			pd.Events = append(pd.Events, pageEvent{
				ID:          ev.ID,
				Time:        ev.Start.In(s.loc).Format("15:04") + " - " + ev.End.In(s.loc).Format("15:04"),
				Type:        ev.Type,
				TypeLabel:   render.TypeLabel(ev.Type),
				Title:       ev.Title,
				Responsible: s.roster.Name(ev.ResponsibleID),
				DetailURL:   link,
			})
		}
		data.Days = append(data.Days, pd)
	}
}
