package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsebench/internal/runner"
)

func ok(url string, run int, ms float64) runner.Result {
	return runner.Result{URL: url, RunNumber: run, LoadTimeMs: ms, Status: runner.StatusSuccess}
}

func fail(url string, run int, msg string) runner.Result {
	return runner.Result{URL: url, RunNumber: run, LoadTimeMs: -1, Status: runner.StatusError, ErrorMessage: msg}
}

func TestSummarizeBasicStats(t *testing.T) {
	results := []runner.Result{
		ok("https://a.test", 1, 100),
		ok("https://a.test", 2, 200),
		ok("https://a.test", 3, 300),
	}

	s := Summarize(results)["https://a.test"]

	require.True(t, s.HasStats)
	assert.Equal(t, 3, s.NumSuccessfulRuns)
	assert.Equal(t, 0, s.NumErrors)
	assert.Equal(t, 200.0, s.AvgLoadTimeMs)
	assert.Equal(t, 200.0, s.MedianLoadTimeMs)
	assert.Equal(t, 100.0, s.MinLoadTimeMs)
	assert.Equal(t, 300.0, s.MaxLoadTimeMs)
	// Sample standard deviation (n-1).
	assert.Equal(t, 100.0, s.StdDevLoadTimeMs)
}

func TestSummarizeEvenCountMedian(t *testing.T) {
	results := []runner.Result{
		ok("https://a.test", 1, 100),
		ok("https://a.test", 2, 200),
		ok("https://a.test", 3, 400),
		ok("https://a.test", 4, 800),
	}

	s := Summarize(results)["https://a.test"]
	assert.Equal(t, 300.0, s.MedianLoadTimeMs)
}

func TestSummarizeSingleSuccessStdDevZero(t *testing.T) {
	s := Summarize([]runner.Result{ok("https://a.test", 1, 123.456)})["https://a.test"]

	require.True(t, s.HasStats)
	assert.Equal(t, 0.0, s.StdDevLoadTimeMs)
	assert.Equal(t, 123.46, s.AvgLoadTimeMs)
}

func TestSummarizeMixedAndAllErrors(t *testing.T) {
	results := []runner.Result{
		ok("https://mixed.test", 1, 150),
		fail("https://mixed.test", 2, "WebDriver error: reset"),
		fail("https://dead.test", 1, "Browser setup failed: no driver"),
		fail("https://dead.test", 2, ""),
	}

	summary := Summarize(results)

	mixed := summary["https://mixed.test"]
	assert.Equal(t, 1, mixed.NumSuccessfulRuns)
	assert.Equal(t, 1, mixed.NumErrors)
	assert.True(t, mixed.HasStats)

	dead := summary["https://dead.test"]
	assert.False(t, dead.HasStats)
	assert.Equal(t, 0, dead.NumSuccessfulRuns)
	assert.Equal(t, 2, dead.NumErrors)
	// Blank error messages get a placeholder so counts and texts line up.
	assert.Equal(t, []string{"Browser setup failed: no driver", "Unknown Error"}, dead.ErrorMessages)
}

func TestSummarizeSkipsSetupSentinelLoadTimes(t *testing.T) {
	results := []runner.Result{
		ok("https://a.test", 1, 100),
		{URL: "https://a.test", RunNumber: 2, LoadTimeMs: -1, Status: runner.StatusSuccess},
	}

	s := Summarize(results)["https://a.test"]
	assert.Equal(t, 1, s.NumSuccessfulRuns)
	assert.Equal(t, 100.0, s.AvgLoadTimeMs)
}

func TestSummaryJSONUnavailableMarkers(t *testing.T) {
	summary := Summarize([]runner.Result{fail("https://dead.test", 1, "boom")})

	data, err := json.Marshal(summary["https://dead.test"])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Unavailable, decoded["avg_load_time_ms"])
	assert.Equal(t, Unavailable, decoded["std_dev_load_time_ms"])
	assert.Equal(t, float64(1), decoded["num_errors"])
}

func TestSortedURLs(t *testing.T) {
	results := []runner.Result{
		ok("https://c.test", 1, 1),
		ok("https://a.test", 1, 1),
		ok("https://c.test", 2, 1),
		ok("https://b.test", 1, 1),
	}
	assert.Equal(t,
		[]string{"https://a.test", "https://b.test", "https://c.test"},
		SortedURLs(results))
}

func TestWriteCSV(t *testing.T) {
	results := []runner.Result{
		ok("https://a.test", 1, 100),
		ok("https://a.test", 2, 200),
		fail("https://b.test", 1, "boom"),
		fail("https://b.test", 2, "crash"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, CSVHeader, rows[0])

	assert.Equal(t, "https://a.test", rows[1][0])
	assert.Equal(t, "2", rows[1][1])
	assert.Equal(t, "150.00", rows[1][3])

	assert.Equal(t, "https://b.test", rows[2][0])
	assert.Equal(t, "0", rows[2][1])
	assert.Equal(t, "2", rows[2][2])
	assert.Equal(t, Unavailable, rows[2][3])
	assert.Equal(t, "boom; crash", rows[2][8])
}

func TestWriteJSONLayout(t *testing.T) {
	results := []runner.Result{
		ok("https://a.test", 1, 100),
		fail("https://a.test", 2, "boom"),
	}
	testConfig := map[string]any{"runs_per_url": 2}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, results, testConfig))

	var doc struct {
		SummaryReport map[string]json.RawMessage `json:"summary_report"`
		RawResults    []runner.Result            `json:"raw_results"`
		TestConfig    map[string]any             `json:"test_configuration"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Contains(t, doc.SummaryReport, "https://a.test")
	require.Len(t, doc.RawResults, 2)
	assert.Equal(t, "https://a.test", doc.RawResults[0].URL)
	assert.Equal(t, runner.StatusError, doc.RawResults[1].Status)
	assert.Equal(t, float64(2), doc.TestConfig["runs_per_url"])

	// Raw results survive export byte-for-byte in meaning.
	assert.True(t, strings.Contains(buf.String(), `"error_message": "boom"`))
}
