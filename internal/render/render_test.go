package render

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmcal/internal/model"
	"crmcal/internal/window"
)

func sampleView() window.View {
	loc := time.FixedZone("BRT", -3*60*60)
	start := time.Date(2024, 3, 13, 10, 0, 0, 0, loc)
	w := window.Window{
		Start: time.Date(2024, 3, 13, 0, 0, 0, 0, loc),
		End:   window.EndOfDay(time.Date(2024, 3, 14, 0, 0, 0, 0, loc)),
	}
	events := []model.Event{
		{ID: "c2-presentation", Type: model.EventPresentation, Title: "Demo, with comma", Start: start.Add(4 * time.Hour), End: start.Add(4*time.Hour + model.EventDuration), ResponsibleID: "u1", CardKey: "K-2"},
		{ID: "c1-due", Type: model.EventDue, Title: "Proposal", Start: start, End: start.Add(model.EventDuration)},
	}
	return window.Apply(events, w, window.DefaultFilter())
}

func TestAgenda(t *testing.T) {
	v := sampleView()
	var buf bytes.Buffer
	require.NoError(t, Agenda(&buf, window.GroupByDay(v), model.Roster{"u1": "Ana"}, 100))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Wed 13/03/2024", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  10:00-11:30  Due           Proposal"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], model.UnassignedName), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "  14:00-15:30  Presentation  Demo, with comma"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], "Ana"), lines[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "Thu 14/03/2024", lines[4])
	assert.Equal(t, "  (no events)", lines[5])
}

func TestAgendaTruncatesWideTitles(t *testing.T) {
	start := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	days := []window.Day{{
		Date: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
		Events: []model.Event{{
			ID: "x-due", Type: model.EventDue, Start: start, End: start.Add(model.EventDuration),
			Title: strings.Repeat("会議", 40),
		}},
	}}
	var buf bytes.Buffer
	require.NoError(t, Agenda(&buf, days, nil, 60))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.LessOrEqual(t, runewidth.StringWidth(lines[1]), 60)
	assert.Contains(t, lines[1], "…")
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, window.Stats{Due: 2, Consultation: 1, Total: 3}))
	assert.Equal(t, "Due: 2  Consultation: 1  Presentation: 0  Total: 3\n", buf.String())
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleView(), model.Roster{"u1": "Ana"}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"c2-presentation", "presentation", "Demo, with comma",
		"2024-03-13T14:00:00-03:00", "2024-03-13T15:30:00-03:00",
		"u1", "Ana", "K-2",
	}, rows[1])
	assert.Equal(t, "c1-due", rows[2][0])
	assert.Equal(t, model.UnassignedName, rows[2][6])
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleView(), model.Roster{"u1": "Ana"}))

	var doc struct {
		Stats  window.Stats `json:"stats"`
		Events []struct {
			ID          string `json:"id"`
			Responsible string `json:"responsible"`
		} `json:"events"`
	}
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, window.Stats{Due: 1, Presentation: 1, Total: 2}, doc.Stats)
	require.Len(t, doc.Events, 2)
	assert.Equal(t, "c2-presentation", doc.Events[0].ID)
	assert.Equal(t, "Ana", doc.Events[0].Responsible)
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "Consultation", TypeLabel(model.EventConsultation))
	assert.Equal(t, "other", TypeLabel(model.EventType("other")))
}
