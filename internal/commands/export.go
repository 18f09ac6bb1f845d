package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crmcal/internal/ics"
	appLog "crmcal/internal/log"
	"crmcal/internal/render"
)

var (
	exportView   viewFlags
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch cards once and write the visible events as ICS, CSV or JSON",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportView.bind(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "ics",
		"Output format (ics, csv, json)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-",
		"Output file, - for stdout")
}

func runExport(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	switch format {
	case "ics", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q (want ics, csv or json)", exportFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	now := time.Now()
	v, roster, err := loadView(cmd.Context(), cfg, &exportView, now)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" && exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		err = render.CSV(w, v, roster)
	case "json":
		err = render.JSON(w, v, roster)
	default:
		err = ics.Encode(w, v.Events, ics.Options{
			DetailHost: cfg.CRM.DetailHost,
			PanelID:    cfg.CRM.PanelID,
			Roster:     roster,
			Now:        now,
		})
	}
	if err != nil {
		return err
	}

	appLog.Info("export written", "format", format, "out", exportOut, "events", len(v.Events))
	return nil
}
