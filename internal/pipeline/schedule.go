package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "crmcal/internal/log"
)

// Schedule refreshes the pipeline on a standard 5-field cron expression until
// ctx is canceled. An empty expression disables scheduling and returns nil at once.
// Overlapping runs are skipped rather than queued.
func (p *Pipeline) Schedule(ctx context.Context, expr string, loc *time.Location, timeout time.Duration) error {
	if expr == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(expr, func() {
		runCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		appLog.Info("scheduled refresh start", "expr", expr)
		_ = p.Refresh(runCtx)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", expr, err)
	}

	c.Start()
	appLog.Info("refresh schedule started", "expr", expr, "timezone", loc.String())

	go func() {
		<-ctx.Done()
		stopped := c.Stop()
		<-stopped.Done()
		appLog.Info("refresh schedule stopped")
	}()
	return nil
}
