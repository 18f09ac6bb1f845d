package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"crmcal/internal/config"
	"crmcal/internal/model"
	"crmcal/internal/window"
)

// viewFlags are the range and filter flags shared by agenda and export.
type viewFlags struct {
	rangeName   string
	from        string
	to          string
	responsible string
	types       string
}

func (f *viewFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rangeName, "range", "",
		"Preset range (today, tomorrow, week, month, custom); default week")
	cmd.Flags().StringVar(&f.from, "from", "",
		"First day for a custom range (dd/mm/yyyy or yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.to, "to", "",
		"Last day for a custom range (dd/mm/yyyy or yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.responsible, "responsible", "",
		"Only show events of this responsible user id")
	cmd.Flags().StringVar(&f.types, "types", "",
		"Comma separated event types (due, consultation, presentation)")
}

// selection parses the flags into a query and filter.
func (f *viewFlags) selection(loc *time.Location) (window.Query, window.Filter, error) {
	q, err := window.ParseQuery(f.rangeName, f.from, f.to, loc)
	if err != nil {
		return window.Query{}, window.Filter{}, err
	}
	types, err := window.ParseTypes(f.types)
	if err != nil {
		return window.Query{}, window.Filter{}, err
	}
	return q, window.Filter{Types: types, Responsible: f.responsible}, nil
}

// loadView validates the flags, fetches cards once and returns the visible
// events with the configured roster.
func loadView(ctx context.Context, cfg *config.Config, f *viewFlags, now time.Time) (window.View, model.Roster, error) {
	loc := cfg.Location()
	q, filter, err := f.selection(loc)
	if err != nil {
		return window.View{}, nil, err
	}

	snap, err := newPipeline(cfg, nil).Load(ctx)
	if err != nil {
		return window.View{}, nil, err
	}

	w := window.Bounds(q, now.In(loc))
	return window.Apply(snap.Events, w, filter), model.Roster(cfg.Responsibles), nil
}
