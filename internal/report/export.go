package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"browsebench/internal/runner"
)

// CSVHeader is the fixed column order of the CSV report.
var CSVHeader = []string{
	"url", "num_successful_runs", "num_errors",
	"avg_load_time_ms", "median_load_time_ms",
	"min_load_time_ms", "max_load_time_ms",
	"std_dev_load_time_ms", "error_messages",
}

// WriteCSV writes one summary row per URL in sorted order.
func WriteCSV(w io.Writer, results []runner.Result) error {
	summary := Summarize(results)

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, url := range SortedURLs(results) {
		s := summary[url]
		stat := func(v float64) string {
			if !s.HasStats {
				return Unavailable
			}
			return strconv.FormatFloat(v, 'f', 2, 64)
		}
		row := []string{
			s.URL,
			strconv.Itoa(s.NumSuccessfulRuns),
			strconv.Itoa(s.NumErrors),
			stat(s.AvgLoadTimeMs),
			stat(s.MedianLoadTimeMs),
			stat(s.MinLoadTimeMs),
			stat(s.MaxLoadTimeMs),
			stat(s.StdDevLoadTimeMs),
			strings.Join(s.ErrorMessages, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONReport is the exported JSON document: summary, raw results verbatim, and
// the test configuration (minus any embedded results).
type JSONReport struct {
	SummaryReport     map[string]Summary `json:"summary_report"`
	RawResults        []runner.Result    `json:"raw_results"`
	TestConfiguration any                `json:"test_configuration"`
}

// WriteJSON writes the full JSON report. testConfig is the settings record
// without its results field.
func WriteJSON(w io.Writer, results []runner.Result, testConfig any) error {
	doc := JSONReport{
		SummaryReport:     Summarize(results),
		RawResults:        results,
		TestConfiguration: testConfig,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportCSV writes the CSV report to filename.
func ExportCSV(filename string, results []runner.Result) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSV(f, results); err != nil {
		return fmt.Errorf("writing csv report: %w", err)
	}
	return nil
}

// ExportJSON writes the JSON report to filename.
func ExportJSON(filename string, results []runner.Result, testConfig any) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteJSON(f, results, testConfig); err != nil {
		return fmt.Errorf("writing json report: %w", err)
	}
	return nil
}
