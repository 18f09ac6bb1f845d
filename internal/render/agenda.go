package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"crmcal/internal/model"
	"crmcal/internal/window"
)

const (
	DefaultWidth = 100
	minWidth     = 50

	timeCol        = 11
	typeCol        = 12
	responsibleCol = 20
	indent         = "  "
	gap            = "  "
)

var typeLabels = map[model.EventType]string{
	model.EventDue:          "Due",
	model.EventConsultation: "Consultation",
	model.EventPresentation: "Presentation",
}

// TypeLabel is the human readable name of an event type.
func TypeLabel(t model.EventType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// TerminalWidth returns the width of stdout, or DefaultWidth when stdout is
// not a terminal.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// Agenda prints one block per day with aligned time, type, title and
// responsible columns. Titles are truncated to fit width display cells.
func Agenda(w io.Writer, days []window.Day, roster model.Roster, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if width < minWidth {
		width = minWidth
	}
	titleCol := width - runewidth.StringWidth(indent) - timeCol - typeCol - responsibleCol - 3*len(gap)
	if titleCol < 10 {
		titleCol = 10
	}

	var b strings.Builder
	for i, day := range days {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(day.Date.Format("Mon 02/01/2006"))
		b.WriteByte('\n')
		if len(day.Events) == 0 {
			b.WriteString(indent + "(no events)\n")
			continue
		}
		loc := day.Date.Location()
		for _, ev := range day.Events {
			span := ev.Start.In(loc).Format("15:04") + "-" + ev.End.In(loc).Format("15:04")
			b.WriteString(indent)
			b.WriteString(cell(span, timeCol))
			b.WriteString(gap)
			b.WriteString(cell(TypeLabel(ev.Type), typeCol))
			b.WriteString(gap)
			b.WriteString(cell(ev.Title, titleCol))
			b.WriteString(gap)
			b.WriteString(strings.TrimRight(cell(roster.Name(ev.ResponsibleID), responsibleCol), " "))
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary prints the per-type counts of a view.
func Summary(w io.Writer, s window.Stats) error {
	_, err := fmt.Fprintf(w, "%s: %d  %s: %d  %s: %d  Total: %d\n",
		TypeLabel(model.EventDue), s.Due,
		TypeLabel(model.EventConsultation), s.Consultation,
		TypeLabel(model.EventPresentation), s.Presentation,
		s.Total,
	)
	return err
}

// cell truncates s to width display cells and pads it on the right.
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
