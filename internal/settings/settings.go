// Package settings persists the run configuration to a JSON file with
// defaulted fields. Overwrite-on-save, last writer wins: a single-operator
// tool never has concurrent writers.
package settings

import (
	"encoding/json"
	"log/slog"
	"os"

	"browsebench/internal/runner"
)

// DefaultFile is the settings path relative to the working directory.
const DefaultFile = "settings.json"

// Settings is the configuration record: the run config plus the preferred
// export format and a placeholder for past results.
type Settings struct {
	runner.Config
	ExportFormat string          `json:"export_format"`
	Results      []runner.Result `json:"results"`
}

// TestConfiguration is the settings record minus the results field, as
// embedded in exported JSON reports.
func (s Settings) TestConfiguration() any {
	return struct {
		runner.Config
		ExportFormat string `json:"export_format"`
	}{s.Config, s.ExportFormat}
}

func Defaults() Settings {
	return Settings{
		Config: runner.Config{
			URLs: []string{
				"https://www.google.com",
				"https://www.wikipedia.org",
				"https://github.com",
			},
			RunsPerURL:           3,
			Browser:              runner.BrowserChrome,
			Headless:             false,
			TimeoutSeconds:       60,
			WaitStrategy:         runner.WaitCombined,
			AntiDetectionEnabled: true,
			RunDNSBenchmark:      false,
		},
		ExportFormat: "CSV",
		Results:      []runner.Result{},
	}
}

// Load reads path, back-filling defaults. It never fails: a missing file is
// created with defaults, a file missing keys is completed and rewritten, and a
// corrupt file silently falls back to full defaults with no partial merge.
func Load(path string, log *slog.Logger) Settings {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("settings file not found, creating with defaults", "path", path)
		defaults := Defaults()
		if err := Save(path, defaults, log); err != nil {
			log.Error("could not write default settings", "path", path, "error", err)
		}
		return defaults
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Error("settings file corrupt, using defaults", "path", path, "error", err)
		return Defaults()
	}

	// Back-fill any missing keys from the defaults and rewrite the file.
	defaultRaw := rawMap(Defaults())
	updated := false
	for key, val := range defaultRaw {
		if _, ok := raw[key]; !ok {
			raw[key] = val
			updated = true
		}
	}

	merged, err := json.Marshal(raw)
	if err != nil {
		log.Error("settings file unusable, using defaults", "path", path, "error", err)
		return Defaults()
	}
	s := Defaults()
	if err := json.Unmarshal(merged, &s); err != nil {
		log.Error("settings file has invalid values, using defaults", "path", path, "error", err)
		return Defaults()
	}

	if updated {
		if err := Save(path, s, log); err != nil {
			log.Warn("could not rewrite completed settings", "path", path, "error", err)
		}
	}
	return s
}

// Save overwrites path with the given settings.
func Save(path string, s Settings, log *slog.Logger) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Info("settings saved", "path", path)
	return nil
}

func rawMap(s Settings) map[string]json.RawMessage {
	data, _ := json.Marshal(s)
	var m map[string]json.RawMessage
	_ = json.Unmarshal(data, &m)
	return m
}
