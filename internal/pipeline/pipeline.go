package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"crmcal/internal/crm"
	"crmcal/internal/derive"
	appLog "crmcal/internal/log"
	"crmcal/internal/metrics"
	"crmcal/internal/model"
)

// Fetcher loads every card of a panel.
type Fetcher interface {
	Fetch(ctx context.Context, panelID string) (crm.FetchResult, error)
}

// Snapshot is the result of one complete fetch and derive pass.
type Snapshot struct {
	Records  int
	Events   []model.Event
	Skipped  []derive.Skip
	LoadedAt time.Time
}

// ErrNotLoaded is returned by Current before the first successful load.
var ErrNotLoaded = errors.New("cards not loaded yet")

// Pipeline fetches cards, derives events and keeps the last good snapshot.
type Pipeline struct {
	fetcher Fetcher
	deriver *derive.Deriver
	panelID string
	metrics *metrics.Metrics
	now     func() time.Time

	// loadMu serializes loads so page requests never interleave.
	loadMu sync.Mutex

	mu      sync.RWMutex
	current *Snapshot
	lastErr error
}

// New constructs a Pipeline. m may be nil.
func New(f Fetcher, d *derive.Deriver, panelID string, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: f,
		deriver: d,
		panelID: panelID,
		metrics: m,
		now:     time.Now,
	}
}

// Load runs one fetch and derive pass without touching the stored snapshot.
func (p *Pipeline) Load(ctx context.Context) (Snapshot, error) {
	started := p.now()

	res, err := p.fetcher.Fetch(ctx, p.panelID)
	if err != nil {
		p.metrics.ObserveFailure(res.Pages, p.now().Sub(started))
		return Snapshot{}, err
	}

	derived := p.deriver.Derive(res.Records)
	snap := Snapshot{
		Records:  len(res.Records),
		Events:   derived.Events,
		Skipped:  derived.Skipped,
		LoadedAt: p.now(),
	}

	skipped := make([]model.EventType, 0, len(derived.Skipped))
	for _, s := range derived.Skipped {
		skipped = append(skipped, s.Source)
	}
	p.metrics.ObserveSuccess(metrics.Load{
		Pages:   res.Pages,
		Records: snap.Records,
		Events:  snap.Events,
		Skipped: skipped,
		Took:    snap.LoadedAt.Sub(started),
		At:      snap.LoadedAt,
	})

	appLog.Info("events derived",
		"panel_id", p.panelID,
		"records", snap.Records,
		"events", len(snap.Events),
		"skipped_dates", len(snap.Skipped),
	)
	return snap, nil
}

// Refresh loads and, on success, replaces the stored snapshot. A failed
// refresh keeps the previous snapshot and records the error.
func (p *Pipeline) Refresh(ctx context.Context) error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	snap, err := p.Load(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		appLog.Error("refresh failed; keeping previous snapshot", err, "panel_id", p.panelID)
		return err
	}
	p.current = &snap
	return nil
}

// Current returns the last good snapshot and the error of the most recent
// refresh, if any. Before the first successful load it returns ErrNotLoaded
// joined with the last refresh error.
func (p *Pipeline) Current() (Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		if p.lastErr != nil {
			return Snapshot{}, errors.Join(ErrNotLoaded, p.lastErr)
		}
		return Snapshot{}, ErrNotLoaded
	}
	return *p.current, p.lastErr
}
