package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"crmcal/internal/model"
)

func TestObserveSuccess(t *testing.T) {
	m := New()
	m.ObserveSuccess(Load{
		Pages:   3,
		Records: 250,
		Events: []model.Event{
			{Type: model.EventDue},
			{Type: model.EventDue},
			{Type: model.EventPresentation},
		},
		Skipped: []model.EventType{model.EventConsultation},
		Took:    2 * time.Second,
		At:      time.Unix(1710000000, 0),
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.pagesFetched))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.records))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("due")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues("consultation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("presentation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedDates.WithLabelValues("consultation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1710000000.0, testutil.ToFloat64(m.lastSuccessTS))
}

func TestObserveFailure(t *testing.T) {
	m := New()
	m.ObserveFailure(2, time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pagesFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFailure(1, time.Second)
		m.ObserveSuccess(Load{})
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveFailure(0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, `crmcal_loads_total{result="error"} 1`), body)
}
