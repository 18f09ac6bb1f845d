package commands

import (
	"github.com/spf13/cobra"

	"crmcal/internal/config"
	"crmcal/internal/crm"
	"crmcal/internal/derive"
	appLog "crmcal/internal/log"
	"crmcal/internal/metrics"
	"crmcal/internal/pipeline"
)

const (
	defaultConfigPath = "/etc/crmcal/config.yaml"
	defaultEnvFile    = ".env"
)

var (
	configPath string
	envFile    string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "crmcal",
		Short: "Calendar view of CRM card dates",
		Long: `crmcal loads every card of a CRM panel, turns its due, consultation and
presentation dates into 90 minute events and shows them as an agenda.

Examples:
  crmcal serve                                   # Web UI, JSON API and ICS feed
  crmcal agenda --range today                    # Print today's agenda
  crmcal agenda --from 01/03/2024 --to 15/03/2024 --responsible <user id>
  crmcal export --format ics --out agenda.ics    # Write the current week as ICS
  crmcal capture --out agenda.png                # Screenshot a running server
  crmcal hash-password                           # Hash a basic auth password`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath,
		"Path to config file (created with defaults if missing)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile,
		"Optional dotenv file with CRMCAL_* variables")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the dotenv file and the YAML config, then applies the
// logging settings.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	appLog.SetFormat(appLog.Format(cfg.LogFormat))

	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"base_url", cfg.CRM.BaseURL,
		"panel_id", cfg.CRM.PanelID,
		"page_size", cfg.CRM.PageSize,
		"max_pages", cfg.CRM.MaxPages,
		"token_set", cfg.CRM.Token != "",
		"responsibles", len(cfg.Responsibles),
	)
	return cfg, nil
}

// newPipeline wires the CRM client, deriver and metrics for cfg. m may be nil.
func newPipeline(cfg *config.Config, m *metrics.Metrics) *pipeline.Pipeline {
	client := crm.New(cfg.CRM.BaseURL, cfg.CRM.Token,
		crm.WithTimeout(cfg.CRM.Timeout),
		crm.WithPageSize(cfg.CRM.PageSize),
		crm.WithMaxPages(cfg.CRM.MaxPages),
	)
	d := derive.New(derive.Config{
		ConsultationField: cfg.Fields.Consultation,
		PresentationField: cfg.Fields.Presentation,
		Location:          cfg.Location(),
	})
	return pipeline.New(client, d, cfg.CRM.PanelID, m)
}
