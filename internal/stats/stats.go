// Package stats keeps live aggregates for the foreground views. The exact
// per-URL report math lives in the report package; this is the cheap streaming
// view of the run in flight.
package stats

import (
	"sync/atomic"
)

// Stats holds real-time aggregated metrics for one run.
type Stats struct {
	Runs    uint64
	Success uint64
	Fail    uint64

	// Load time histogram, successful runs only
	LoadTime *LoadHistogram
}

func New() *Stats {
	return &Stats{
		LoadTime: NewLoadHistogram(),
	}
}

// Record adds one finished run. loadMs < 0 (setup failures) counts against the
// totals but never enters the histogram.
func (s *Stats) Record(success bool, loadMs float64) {
	atomic.AddUint64(&s.Runs, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
		if loadMs >= 0 {
			s.LoadTime.RecordMs(loadMs)
		}
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
}

func (s *Stats) Reset() {
	atomic.StoreUint64(&s.Runs, 0)
	atomic.StoreUint64(&s.Success, 0)
	atomic.StoreUint64(&s.Fail, 0)
	s.LoadTime.Reset()
}

func (s *Stats) ErrorRate() float64 {
	runs := atomic.LoadUint64(&s.Runs)
	if runs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(runs)) * 100
}

// Percentiles in milliseconds.

func (s *Stats) P50() float64 { return s.LoadTime.QuantileMs(50) }
func (s *Stats) P90() float64 { return s.LoadTime.QuantileMs(90) }
func (s *Stats) P99() float64 { return s.LoadTime.QuantileMs(99) }

// MaxMs returns the slowest successful load in milliseconds.
func (s *Stats) MaxMs() float64 { return s.LoadTime.MaxMs() }

// Snapshot is a cheap copy for the UI.
type Snapshot struct {
	Runs    uint64
	Success uint64
	Fail    uint64

	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Runs:    atomic.LoadUint64(&s.Runs),
		Success: atomic.LoadUint64(&s.Success),
		Fail:    atomic.LoadUint64(&s.Fail),
		P50Ms:   s.P50(),
		P90Ms:   s.P90(),
		P99Ms:   s.P99(),
		MaxMs:   s.MaxMs(),
	}
}
