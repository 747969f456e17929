package settings

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsebench/internal/runner"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadMissingFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s := Load(path, testLogger())

	assert.Equal(t, Defaults(), s)

	// The defaults were persisted for next time.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Settings
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, s, onDisk)
}

func TestLoadBackFillsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	partial := `{"urls": ["https://only.test"], "runs_per_url": 7}`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	s := Load(path, testLogger())

	// Present keys win, absent keys come from the defaults.
	assert.Equal(t, []string{"https://only.test"}, s.URLs)
	assert.Equal(t, 7, s.RunsPerURL)
	assert.Equal(t, runner.BrowserChrome, s.Browser)
	assert.Equal(t, runner.WaitCombined, s.WaitStrategy)
	assert.Equal(t, 60, s.TimeoutSeconds)
	assert.Equal(t, "CSV", s.ExportFormat)

	// The completed record was written back.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "wait_strategy")
	assert.Contains(t, raw, "anti_detection_enabled")
	assert.Contains(t, raw, "export_format")
}

func TestLoadCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := Load(path, testLogger())

	// Full defaults, no partial merge.
	assert.Equal(t, Defaults(), s)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	want := Defaults()
	want.URLs = []string{"https://x.test", "https://y.test"}
	want.RunsPerURL = 5
	want.Browser = runner.BrowserFirefox
	want.Headless = true
	want.WaitStrategy = runner.WaitLoadEventEnd
	want.ExportFormat = "JSON"

	require.NoError(t, Save(path, want, testLogger()))
	got := Load(path, testLogger())

	assert.Equal(t, want, got)
}

func TestTestConfigurationOmitsResults(t *testing.T) {
	s := Defaults()
	s.Results = []runner.Result{{URL: "https://x.test", Status: runner.StatusSuccess}}

	data, err := json.Marshal(s.TestConfiguration())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "results")
	assert.Contains(t, raw, "urls")
	assert.Contains(t, raw, "export_format")
}
