package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LoadHistogram tracks successful page load times under a lock so the
// orchestrator can record while a foreground snapshot reads. Values are kept
// in microseconds; the API speaks milliseconds.
type LoadHistogram struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func NewLoadHistogram() *LoadHistogram {
	// 1us to 10min at 3 significant figures: covers a sub-millisecond cache
	// hit through a page hung until the timeout.
	h := hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3)
	return &LoadHistogram{hist: h}
}

// RecordMs adds one load time measured in milliseconds.
func (h *LoadHistogram) RecordMs(ms float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.RecordValue(int64(ms * 1000))
}

// QuantileMs returns the load time at quantile q (0-100) in milliseconds.
func (h *LoadHistogram) QuantileMs(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return float64(h.hist.ValueAtQuantile(q)) / 1000.0
}

// MaxMs returns the slowest recorded load in milliseconds.
func (h *LoadHistogram) MaxMs() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return float64(h.hist.Max()) / 1000.0
}

func (h *LoadHistogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}

// Reset drops all recorded values so the histogram can serve the next run.
func (h *LoadHistogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hist.Reset()
}
