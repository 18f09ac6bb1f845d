package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmcal/internal/model"
)

func strPtr(s string) *string { return &s }

func fullRecord() model.Record {
	return model.Record{
		ID:                "rec-1",
		PanelID:           "panel-1",
		Title:             "Kitchen project",
		Key:               strPtr("COME-36"),
		DueDate:           strPtr("2024-03-13T10:00:00Z"),
		ResponsibleUserID: strPtr("u-1"),
		CustomFields: map[string]any{
			DefaultConsultationField: []any{"2024-03-14T09:30:00-03:00"},
			DefaultPresentationField: []any{"2024-03-15T14:00:00.000Z", "2030-01-01T00:00:00Z"},
		},
	}
}

func TestDeriveAllSources(t *testing.T) {
	events := ToEvents([]model.Record{fullRecord()})
	require.Len(t, events, 3)

	assert.Equal(t, []model.EventType{model.EventDue, model.EventConsultation, model.EventPresentation},
		[]model.EventType{events[0].Type, events[1].Type, events[2].Type})
	assert.Equal(t, []string{"rec-1-due", "rec-1-consultation", "rec-1-presentation"},
		[]string{events[0].ID, events[1].ID, events[2].ID})

	for _, ev := range events {
		assert.Equal(t, 90*time.Minute, ev.End.Sub(ev.Start), ev.ID)
		assert.Equal(t, "Kitchen project", ev.Title)
		assert.Equal(t, "u-1", ev.ResponsibleID)
		assert.Equal(t, "panel-1", ev.PanelID)
		assert.Equal(t, "COME-36", ev.CardKey)
	}

	assert.True(t, events[0].Start.Equal(time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)))
	assert.True(t, events[1].Start.Equal(time.Date(2024, 3, 14, 12, 30, 0, 0, time.UTC)))
	assert.True(t, events[2].Start.Equal(time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)))
}

func TestDeriveNoSources(t *testing.T) {
	rec := model.Record{ID: "empty", Title: "Nothing", CustomFields: map[string]any{"other": []any{"2024-03-14"}}}
	res := New(Config{}).Derive([]model.Record{rec})
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Skipped)
}

func TestDeriveMalformedDueKeepsOtherSources(t *testing.T) {
	rec := fullRecord()
	rec.DueDate = strPtr("not-a-date")

	res := New(Config{}).Derive([]model.Record{rec})
	require.Len(t, res.Events, 2)
	assert.Equal(t, model.EventConsultation, res.Events[0].Type)
	assert.Equal(t, model.EventPresentation, res.Events[1].Type)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, Skip{RecordID: "rec-1", Source: model.EventDue, Raw: "not-a-date"}, res.Skipped[0])
}

func TestDeriveIgnoresNonStringCustomValues(t *testing.T) {
	rec := fullRecord()
	rec.CustomFields = map[string]any{
		DefaultConsultationField: "2024-03-14T09:30:00Z",
		DefaultPresentationField: []any{},
	}
	events := ToEvents([]model.Record{rec})
	require.Len(t, events, 1)
	assert.Equal(t, model.EventDue, events[0].Type)
}

func TestDeriveOrderFollowsRecords(t *testing.T) {
	a := fullRecord()
	b := model.Record{ID: "rec-2", Title: "Second", DueDate: strPtr("2024-01-01")}
	c := model.Record{ID: "rec-3", Title: "Third", CustomFields: map[string]any{
		DefaultPresentationField: []any{"2024-02-01T08:00"},
	}}

	events := ToEvents([]model.Record{b, a, c})
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{
		"rec-2-due",
		"rec-1-due", "rec-1-consultation", "rec-1-presentation",
		"rec-3-presentation",
	}, ids)
}

func TestDeriveIsDeterministic(t *testing.T) {
	records := []model.Record{fullRecord(), {ID: "rec-2", DueDate: strPtr("2024-01-01")}}
	d := New(Config{})
	assert.Equal(t, d.Derive(records), d.Derive(records))
}

func TestDeriveCustomFieldKeysAndLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	d := New(Config{ConsultationField: "consult", PresentationField: "present", Location: loc})

	rec := model.Record{ID: "r", CustomFields: map[string]any{
		"consult": []any{"2024-03-14T09:30"},
		"present": []any{"2024-03-15"},
	}}
	events := d.Derive([]model.Record{rec}).Events
	require.Len(t, events, 2)
	assert.True(t, events[0].Start.Equal(time.Date(2024, 3, 14, 9, 30, 0, 0, loc)))
	assert.True(t, events[1].Start.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)))
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-13T10:00:00Z", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00:00.123Z", time.Date(2024, 3, 13, 10, 0, 0, 123e6, time.UTC), true},
		{"2024-03-13T10:00:00+01:00", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00:00", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00:00.000+0000", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00:00+00", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00-03:00", time.Date(2024, 3, 13, 13, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00+0530", time.Date(2024, 3, 13, 4, 30, 0, 0, time.UTC), true},
		{"2024-03-13T10Z", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-13T10:00:00+0", time.Time{}, false},
		{"2024-03-13", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), true},
		{" 2024-03-13 ", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), true},
		{"13/03/2024", time.Time{}, false},
		{"2024-02-30", time.Time{}, false},
		{"not-a-date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDateTime(tt.in, time.UTC)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %s", got)
			}
		})
	}
}
