package commands

import (
	"time"

	"github.com/spf13/cobra"

	"crmcal/internal/capture"
)

var (
	captureURL     string
	captureOut     string
	captureWidth   int
	captureHeight  int
	captureTimeout time.Duration
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save a PNG screenshot of a running server's calendar page",
	Long: `Opens the /calendar page in headless Chromium, waits until it reports
data-ready="true" and writes a full-page PNG. Without --url the page of the
configured listen address is used.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVar(&captureURL, "url", "",
		"Page to capture (default http://<listen>/calendar)")
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "crmcal.png",
		"Output PNG path")
	captureCmd.Flags().IntVar(&captureWidth, "width", capture.DefaultWidth,
		"Viewport width in pixels")
	captureCmd.Flags().IntVar(&captureHeight, "height", capture.DefaultHeight,
		"Viewport height in pixels")
	captureCmd.Flags().DurationVar(&captureTimeout, "timeout", capture.DefaultTimeout,
		"Overall capture timeout")
}

func runCapture(cmd *cobra.Command, _ []string) error {
	url := captureURL
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url = "http://" + cfg.Listen + "/calendar"
	}
	return capture.CaptureCalendarPNG(cmd.Context(), capture.Options{
		URL:        url,
		OutputPath: captureOut,
		Width:      captureWidth,
		Height:     captureHeight,
		Timeout:    captureTimeout,
	})
}
