package commands

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmcal/internal/auth"
	"crmcal/internal/config"
)

const cardsJSON = `{"items":[
 {"id":"c1","title":"Proposal ACME","panelId":"p1","key":"K-1","dueDate":"2024-03-13T10:00:00Z","responsibleUserId":"u1"},
 {"id":"c2","title":"Kickoff","panelId":"p1","customFields":{"data-da-consultoria":["2024-03-13T14:00:00Z"],"data-da-apresenta-o":["2024-04-02T09:00:00Z"]}},
 {"id":"c3","title":"Broken","panelId":"p1","dueDate":"not a date"}
]}`

// setup starts a fake CRM and writes a config pointing at it.
func setup(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cardsJSON))
	}))
	t.Cleanup(srv.Close)

	for _, k := range []string{config.EnvAPIToken, config.EnvBaseURL, config.EnvPanelID} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.CRM.BaseURL = srv.URL
	cfg.Responsibles = map[string]string{"u1": "Ana"}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func noEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestAgendaCommand(t *testing.T) {
	cfgPath := setup(t)
	out, err := run(t, "", "agenda", "--config", cfgPath, "--env-file", noEnv(t),
		"--range", "custom", "--from", "13/03/2024", "--to", "13/03/2024", "--width", "100",
		"--responsible", "", "--types", "")
	require.NoError(t, err)

	assert.Contains(t, out, "13/03/2024 - 13/03/2024")
	assert.Contains(t, out, "Wed 13/03/2024")
	assert.Contains(t, out, "Proposal ACME")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Kickoff")
	assert.NotContains(t, out, "Broken")
	assert.Contains(t, out, "Due: 1  Consultation: 1  Presentation: 0  Total: 2")
}

func TestExportCSV(t *testing.T) {
	cfgPath := setup(t)
	outPath := filepath.Join(t.TempDir(), "agenda.csv")
	_, err := run(t, "", "export", "--config", cfgPath, "--env-file", noEnv(t),
		"--format", "csv", "--out", outPath,
		"--range", "custom", "--from", "2024-03-01", "--to", "2024-04-30",
		"--responsible", "", "--types", "due,presentation")
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "c1-due", rows[1][0])
	assert.Equal(t, "c2-presentation", rows[2][0])
}

func TestExportICSToStdout(t *testing.T) {
	cfgPath := setup(t)
	out, err := run(t, "", "export", "--config", cfgPath, "--env-file", noEnv(t),
		"--format", "ics", "--out", "-",
		"--range", "custom", "--from", "2024-03-13", "--to", "2024-03-13",
		"--responsible", "u1", "--types", "")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:c1-due@crmcal")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "", "export", "--format", "xml", "--out", "-")
	assert.ErrorContains(t, err, "unknown format")
}

func TestExportRejectsBadRange(t *testing.T) {
	cfgPath := setup(t)
	_, err := run(t, "", "export", "--config", cfgPath, "--env-file", noEnv(t),
		"--format", "json", "--out", "-", "--range", "year", "--from", "", "--to", "",
		"--responsible", "", "--types", "")
	assert.ErrorContains(t, err, "unknown range")
}

func TestHashPasswordFromPipe(t *testing.T) {
	out, err := run(t, "correct horse\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	ok, err := auth.VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := run(t, "\n", "hash-password")
	assert.ErrorIs(t, err, auth.ErrEmptyPasswd)
}
