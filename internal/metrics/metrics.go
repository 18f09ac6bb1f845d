package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crmcal/internal/model"
)

// Metrics holds the load pipeline collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	pagesFetched  prometheus.Counter
	loadsTotal    *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	records       prometheus.Gauge
	events        *prometheus.GaugeVec
	skippedDates  *prometheus.CounterVec
	lastSuccessTS prometheus.Gauge
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.pagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crmcal",
		Name:      "crm_pages_fetched_total",
		Help:      "Card listing pages requested from the CRM",
	})
	m.loadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crmcal",
		Name:      "loads_total",
		Help:      "Card loads by result",
	}, []string{"result"})
	m.loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crmcal",
		Name:      "load_duration_seconds",
		Help:      "Time spent fetching and deriving events",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	m.records = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crmcal",
		Name:      "records",
		Help:      "Distinct cards in the last successful load",
	})
	m.events = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crmcal",
		Name:      "events",
		Help:      "Derived events in the last successful load",
	}, []string{"type"})
	m.skippedDates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crmcal",
		Name:      "skipped_dates_total",
		Help:      "Date values that were present but could not be parsed",
	}, []string{"source"})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crmcal",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful load",
	})

	m.registry.MustRegister(
		m.pagesFetched,
		m.loadsTotal,
		m.loadDuration,
		m.records,
		m.events,
		m.skippedDates,
		m.lastSuccessTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFailure records a failed load.
func (m *Metrics) ObserveFailure(pages int, took time.Duration) {
	if m == nil {
		return
	}
	m.pagesFetched.Add(float64(pages))
	m.loadsTotal.WithLabelValues("error").Inc()
	m.loadDuration.Observe(took.Seconds())
}

// Load summarizes a successful load.
type Load struct {
	Pages   int
	Records int
	Events  []model.Event
	Skipped []model.EventType
	Took    time.Duration
	At      time.Time
}

// ObserveSuccess records a successful load and resets the per-type gauges.
func (m *Metrics) ObserveSuccess(l Load) {
	if m == nil {
		return
	}
	m.pagesFetched.Add(float64(l.Pages))
	m.loadsTotal.WithLabelValues("success").Inc()
	m.loadDuration.Observe(l.Took.Seconds())
	m.records.Set(float64(l.Records))

	counts := make(map[model.EventType]int, len(model.AllEventTypes))
	for _, ev := range l.Events {
		counts[ev.Type]++
	}
	for _, t := range model.AllEventTypes {
		m.events.WithLabelValues(string(t)).Set(float64(counts[t]))
	}
	for _, src := range l.Skipped {
		m.skippedDates.WithLabelValues(string(src)).Inc()
	}
	m.lastSuccessTS.Set(float64(l.At.Unix()))
}
