package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordCountsAndPercentiles(t *testing.T) {
	s := New()

	for _, ms := range []float64{100, 200, 300, 400} {
		s.Record(true, ms)
	}
	s.Record(false, -1)

	snap := s.Snapshot()
	assert.Equal(t, uint64(5), snap.Runs)
	assert.Equal(t, uint64(4), snap.Success)
	assert.Equal(t, uint64(1), snap.Fail)

	// Histogram values come back within hdrhistogram's precision window.
	assert.InDelta(t, 400.0, snap.MaxMs, 1.0)
	assert.InDelta(t, 200.0, snap.P50Ms, 1.0)
	assert.Equal(t, int64(4), s.LoadTime.Count())
}

func TestSetupFailuresStayOutOfHistogram(t *testing.T) {
	s := New()

	s.Record(false, -1)
	s.Record(false, -1)

	assert.Equal(t, int64(0), s.LoadTime.Count())
	assert.Equal(t, 100.0, s.ErrorRate())
}

func TestReset(t *testing.T) {
	s := New()
	s.Record(true, 150)
	s.Record(false, -1)

	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, uint64(0), snap.Runs)
	assert.Equal(t, uint64(0), snap.Fail)
	assert.Equal(t, int64(0), s.LoadTime.Count())
	assert.Equal(t, 0.0, s.ErrorRate())
}
