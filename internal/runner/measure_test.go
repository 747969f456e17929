package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSession hands out canned answers; ReadyState and LoadEventEnd walk
// their slices and stick on the last entry.
type scriptedSession struct {
	navErr      error
	readyErr    error
	readyStates []string
	loadEnds    []float64
	timing      map[string]float64
	timingErr   error

	readyCalls int
	endCalls   int
}

func (s *scriptedSession) Navigate(string) error { return s.navErr }

func (s *scriptedSession) ReadyState() (string, error) {
	if s.readyErr != nil {
		return "", s.readyErr
	}
	i := s.readyCalls
	if i >= len(s.readyStates) {
		i = len(s.readyStates) - 1
	}
	s.readyCalls++
	return s.readyStates[i], nil
}

func (s *scriptedSession) LoadEventEnd() (float64, error) {
	i := s.endCalls
	if i >= len(s.loadEnds) {
		i = len(s.loadEnds) - 1
	}
	s.endCalls++
	return s.loadEnds[i], nil
}

func (s *scriptedSession) PerformanceTiming() (map[string]float64, error) {
	return s.timing, s.timingErr
}

func (s *scriptedSession) Reset() error { return nil }
func (s *scriptedSession) Close() error { return nil }

func fastSampler() *Sampler {
	s := NewSampler(testLogger())
	s.Poll = time.Millisecond
	return s
}

func TestMeasureSuccessAfterPolling(t *testing.T) {
	sess := &scriptedSession{
		readyStates: []string{"loading", "interactive", "complete"},
		timing:      map[string]float64{"navigationStart": 1000},
	}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitReadyState)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "https://a.test", res.URL)
	assert.GreaterOrEqual(t, res.LoadTimeMs, 0.0)
	assert.Empty(t, res.ErrorMessage)
	assert.GreaterOrEqual(t, sess.readyCalls, 3)
}

func TestMeasureTimeoutNamesStrategy(t *testing.T) {
	sess := &scriptedSession{readyStates: []string{"loading"}}

	res := fastSampler().Measure(sess, "https://slow.test", 0, WaitReadyState)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t,
		"Timeout after 0 seconds waiting for page load (ReadyState strategy).",
		res.ErrorMessage)
	// Time-to-failure is still informative.
	assert.GreaterOrEqual(t, res.LoadTimeMs, 0.0)
	assert.Nil(t, res.NavigationTiming)
}

func TestMeasureCombinedWaitsBothPhases(t *testing.T) {
	sess := &scriptedSession{
		readyStates: []string{"complete"},
		loadEnds:    []float64{0, 0, 1700000000000},
		timing:      map[string]float64{"navigationStart": 1000},
	}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitCombined)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.GreaterOrEqual(t, sess.endCalls, 3, "second phase polls loadEventEnd")
}

func TestMeasureCombinedFirstPhaseTimeout(t *testing.T) {
	// readyState never completes: the combined strategy's first bounded wait
	// expires and the message still names the combined strategy.
	sess := &scriptedSession{readyStates: []string{"loading"}}

	res := fastSampler().Measure(sess, "https://a.test", 0, WaitCombined)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t,
		"Timeout after 0 seconds waiting for page load (Combined strategy).",
		res.ErrorMessage)
	assert.Zero(t, sess.endCalls, "second phase never starts")
}

func TestMeasureCombinedSecondPhaseTimeout(t *testing.T) {
	// Page reaches readyState complete but the load event never fires: the
	// combined strategy reports its timeout under its own name.
	sess := &scriptedSession{
		readyStates: []string{"complete"},
		loadEnds:    []float64{0},
	}

	res := fastSampler().Measure(sess, "https://a.test", 0, WaitCombined)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t,
		"Timeout after 0 seconds waiting for page load (Combined strategy).",
		res.ErrorMessage)
}

func TestMeasureNavigationError(t *testing.T) {
	sess := &scriptedSession{navErr: errors.New("dns failure")}

	res := fastSampler().Measure(sess, "https://nowhere.test", 10, WaitReadyState)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "WebDriver error: dns failure", res.ErrorMessage)
	assert.GreaterOrEqual(t, res.LoadTimeMs, 0.0)
}

func TestMeasurePredicateErrorIsWebDriverError(t *testing.T) {
	// The session dying mid-wait is a driver failure, not a slow page.
	sess := &scriptedSession{readyErr: errors.New("browser has gone away")}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitReadyState)

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "WebDriver error: browser has gone away", res.ErrorMessage)
}

func TestMeasureInvalidStrategy(t *testing.T) {
	sess := &scriptedSession{readyStates: []string{"complete"}}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitStrategy("Bogus"))

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "Unexpected error:")
	assert.Contains(t, res.ErrorMessage, "invalid wait strategy")
}

func TestExtractTimingDerivesBreakdown(t *testing.T) {
	sess := &scriptedSession{
		readyStates: []string{"complete"},
		timing: map[string]float64{
			"navigationStart":          1000,
			"fetchStart":               1010,
			"domainLookupStart":        1010,
			"domainLookupEnd":          1035,
			"connectStart":             1035,
			"connectEnd":               1075,
			"requestStart":             1075,
			"responseStart":            1200,
			"domInteractive":           1400,
			"domContentLoadedEventEnd": 1450,
			"domComplete":              1600,
			"loadEventStart":           1600,
			"loadEventEnd":             1650,
		},
	}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitReadyState)

	require.Equal(t, StatusSuccess, res.Status)
	nt := res.NavigationTiming
	require.NotNil(t, nt)
	assert.Equal(t, 25.0, nt.DNSLookupTime)
	assert.Equal(t, 40.0, nt.ConnectTime)
	assert.Equal(t, 125.0, nt.TTFB)
	assert.Equal(t, 650.0, nt.TotalLoadFromNavStart)
	assert.Equal(t, 200.0, nt.DOMProcessingTime)
	assert.Empty(t, nt.Error)
}

func TestExtractTimingZeroNavigationStart(t *testing.T) {
	sess := &scriptedSession{
		readyStates: []string{"complete"},
		timing:      map[string]float64{"navigationStart": 0},
	}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitReadyState)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Nil(t, res.NavigationTiming)
}

func TestExtractTimingFailureDegrades(t *testing.T) {
	sess := &scriptedSession{
		readyStates: []string{"complete"},
		timingErr:   errors.New("script blocked"),
	}

	res := fastSampler().Measure(sess, "https://a.test", 10, WaitReadyState)

	// Timing extraction failing never fails the run itself.
	assert.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.NavigationTiming)
	assert.Equal(t, "script blocked", res.NavigationTiming.Error)
}
