package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{URL: "http://127.0.0.1:8080/calendar", OutputPath: "out.png"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o, err = Options{URL: "u", OutputPath: "p", Width: 800, Height: 600, Timeout: time.Second}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 600, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"missing url", Options{OutputPath: "p"}, "URL is required"},
		{"missing output", Options{URL: "u"}, "OutputPath is required"},
		{"negative size", Options{URL: "u", OutputPath: "p", Width: -1}, "invalid viewport"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.opts.withDefaults()
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestCaptureRejectsBadOptionsBeforeLaunch(t *testing.T) {
	err := CaptureCalendarPNG(context.Background(), Options{})
	assert.ErrorContains(t, err, "URL is required")
}
