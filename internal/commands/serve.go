package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appLog "crmcal/internal/log"
	"crmcal/internal/metrics"
	"crmcal/internal/web"
)

// refreshTimeout bounds a scheduled reload across all of its pages.
const refreshTimeout = 10 * time.Minute

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agenda page, JSON API, ICS feed and metrics",
	Long: `Loads cards once at startup, then reloads them on the configured refresh
cron schedule and on POST /api/refresh. A failed reload keeps the previous
events. SIGINT or SIGTERM shuts the server down gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"HTTP listen address (overrides config if set)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.Info("crmcal starting",
		"listen", cfg.Listen,
		"panel_id", cfg.CRM.PanelID,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
	)

	m := metrics.New()
	p := newPipeline(cfg, m)

	// The server starts even if the first load fails; /api/refresh and the
	// schedule can recover later.
	_ = p.Refresh(ctx)

	if err := p.Schedule(ctx, cfg.RefreshCron, cfg.Location(), refreshTimeout); err != nil {
		return err
	}

	err = web.NewServer(cfg, p, m).Run(ctx)
	appLog.Info("crmcal exiting")
	return err
}
