// Package report reduces the raw per-run result stream into per-URL summary
// statistics and serializes CSV/JSON reports.
package report

import (
	"encoding/json"
	"math"
	"sort"

	"browsebench/internal/runner"
)

// Unavailable marks the numeric fields of a URL that produced no successful run.
const Unavailable = "N/A"

// Summary is the derived per-URL aggregate. Recomputed on demand from the full
// result sequence; never persisted independently of the raw results.
type Summary struct {
	URL               string
	NumSuccessfulRuns int
	NumErrors         int
	AvgLoadTimeMs     float64
	MedianLoadTimeMs  float64
	MinLoadTimeMs     float64
	MaxLoadTimeMs     float64
	StdDevLoadTimeMs  float64

	// HasStats is false when the success subset was empty; the numeric fields
	// then serialize as the Unavailable marker.
	HasStats bool

	ErrorMessages []string
}

// MarshalJSON renders unavailable numeric fields as the "N/A" marker string,
// matching the exported report format.
func (s Summary) MarshalJSON() ([]byte, error) {
	stat := func(v float64) any {
		if !s.HasStats {
			return Unavailable
		}
		return v
	}
	return json.Marshal(struct {
		URL               string   `json:"url"`
		NumSuccessfulRuns int      `json:"num_successful_runs"`
		NumErrors         int      `json:"num_errors"`
		AvgLoadTimeMs     any      `json:"avg_load_time_ms"`
		MedianLoadTimeMs  any      `json:"median_load_time_ms"`
		MinLoadTimeMs     any      `json:"min_load_time_ms"`
		MaxLoadTimeMs     any      `json:"max_load_time_ms"`
		StdDevLoadTimeMs  any      `json:"std_dev_load_time_ms"`
		ErrorMessages     []string `json:"error_messages"`
	}{
		URL:               s.URL,
		NumSuccessfulRuns: s.NumSuccessfulRuns,
		NumErrors:         s.NumErrors,
		AvgLoadTimeMs:     stat(s.AvgLoadTimeMs),
		MedianLoadTimeMs:  stat(s.MedianLoadTimeMs),
		MinLoadTimeMs:     stat(s.MinLoadTimeMs),
		MaxLoadTimeMs:     stat(s.MaxLoadTimeMs),
		StdDevLoadTimeMs:  stat(s.StdDevLoadTimeMs),
		ErrorMessages:     s.ErrorMessages,
	})
}

// Summarize reduces results into per-URL summaries. The input is never mutated.
// Load times below zero (setup-failure sentinels) are excluded from the stats.
func Summarize(results []runner.Result) map[string]Summary {
	summary := make(map[string]Summary)
	if len(results) == 0 {
		return summary
	}

	for _, url := range SortedURLs(results) {
		var loadTimes []float64
		var errMessages []string
		numErrors := 0

		for _, r := range results {
			if r.URL != url {
				continue
			}
			switch r.Status {
			case runner.StatusSuccess:
				if r.LoadTimeMs >= 0 {
					loadTimes = append(loadTimes, r.LoadTimeMs)
				}
			case runner.StatusError:
				numErrors++
				msg := r.ErrorMessage
				if msg == "" {
					msg = "Unknown Error"
				}
				errMessages = append(errMessages, msg)
			}
		}

		s := Summary{
			URL:               url,
			NumSuccessfulRuns: len(loadTimes),
			NumErrors:         numErrors,
			ErrorMessages:     errMessages,
		}
		if len(loadTimes) > 0 {
			s.HasStats = true
			s.AvgLoadTimeMs = round2(mean(loadTimes))
			s.MinLoadTimeMs = round2(minOf(loadTimes))
			s.MaxLoadTimeMs = round2(maxOf(loadTimes))
			s.MedianLoadTimeMs = round2(median(loadTimes))
			s.StdDevLoadTimeMs = round2(stdDev(loadTimes))
		}
		summary[url] = s
	}
	return summary
}

// SortedURLs returns the distinct URLs of the result sequence in sorted order.
func SortedURLs(results []runner.Result) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, r := range results {
		if !seen[r.URL] {
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}
	sort.Strings(urls)
	return urls
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func median(vs []float64) float64 {
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev is the sample standard deviation, 0.0 for a single value.
func stdDev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0.0
	}
	m := mean(vs)
	sum := 0.0
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)-1))
}
