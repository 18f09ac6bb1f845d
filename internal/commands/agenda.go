package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"crmcal/internal/render"
	"crmcal/internal/window"
)

var (
	agendaView  viewFlags
	agendaWidth int
)

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Fetch cards once and print the agenda",
	RunE:  runAgenda,
}

func init() {
	rootCmd.AddCommand(agendaCmd)
	agendaView.bind(agendaCmd)
	agendaCmd.Flags().IntVar(&agendaWidth, "width", 0,
		"Output width in columns (default: terminal width)")
}

func runAgenda(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	v, roster, err := loadView(cmd.Context(), cfg, &agendaView, time.Now())
	if err != nil {
		return err
	}

	width := agendaWidth
	if width <= 0 {
		width = render.TerminalWidth()
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%s - %s\n\n",
		v.Window.Start.Format("02/01/2006"), v.Window.End.Format("02/01/2006")); err != nil {
		return err
	}
	if err := render.Agenda(out, window.GroupByDay(v), roster, width); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return render.Summary(out, v.Stats)
}
