package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var errWaitTimeout = errors.New("wait timed out")

// sessionError marks a failure raised by the browser session itself (navigate
// or predicate evaluation), as opposed to a timeout or internal misuse. The
// distinction only changes how the result message is worded.
type sessionError struct{ err error }

func (e *sessionError) Error() string { return e.err.Error() }
func (e *sessionError) Unwrap() error { return e.err }

// Sampler measures a single page load on an open session. It always returns a
// Result: ordinary load failures become Error results, never Go errors.
type Sampler struct {
	log *slog.Logger

	// Poll is the interval between completion-predicate checks.
	Poll time.Duration
}

func NewSampler(log *slog.Logger) *Sampler {
	return &Sampler{log: log, Poll: 500 * time.Millisecond}
}

// Measure navigates the session to url and blocks until the strategy's
// completion predicate holds or the timeout expires. On any failure the elapsed
// time-to-failure is still recorded; partial timing is informative.
func (s *Sampler) Measure(sess Session, url string, timeoutSec int, strategy WaitStrategy) Result {
	res := Result{
		URL:        url,
		LoadTimeMs: -1,
		Status:     StatusError,
		Timestamp:  float64(time.Now().UnixMilli()) / 1000,
	}
	start := time.Now()
	timeout := time.Duration(timeoutSec) * time.Second

	err := s.load(sess, url, timeout, strategy)

	elapsedMs := float64(time.Since(start)) / float64(time.Millisecond)
	res.LoadTimeMs = elapsedMs

	if err != nil {
		var se *sessionError
		switch {
		case errors.Is(err, errWaitTimeout):
			res.ErrorMessage = fmt.Sprintf(
				"Timeout after %d seconds waiting for page load (%s strategy).", timeoutSec, strategy)
			s.log.Warn("page load timed out", "url", url, "strategy", string(strategy))
		case errors.As(err, &se):
			res.ErrorMessage = fmt.Sprintf("WebDriver error: %v", se.err)
			s.log.Error("page load failed", "url", url, "error", se.err)
		default:
			res.ErrorMessage = fmt.Sprintf("Unexpected error: %v", err)
			s.log.Error("unexpected load failure", "url", url, "error", err)
		}
		return res
	}

	res.Status = StatusSuccess
	res.NavigationTiming = s.extractTiming(sess, url)
	return res
}

func (s *Sampler) load(sess Session, url string, timeout time.Duration, strategy WaitStrategy) error {
	if err := sess.Navigate(url); err != nil {
		return &sessionError{err}
	}

	readyComplete := func() (bool, error) {
		state, err := sess.ReadyState()
		if err != nil {
			return false, &sessionError{err}
		}
		return state == "complete", nil
	}
	loadEventEnded := func() (bool, error) {
		end, err := sess.LoadEventEnd()
		if err != nil {
			return false, &sessionError{err}
		}
		return end > 0, nil
	}

	switch strategy {
	case WaitReadyState:
		return s.waitFor(readyComplete, timeout)
	case WaitLoadEventEnd:
		return s.waitFor(loadEventEnded, timeout)
	case WaitCombined:
		// Two sequential bounded waits, each with the full timeout. Worst case
		// ~2x the configured timeout; preserved behavior, not a bug.
		if err := s.waitFor(readyComplete, timeout); err != nil {
			return err
		}
		return s.waitFor(loadEventEnded, timeout)
	default:
		return fmt.Errorf("invalid wait strategy: %q", strategy)
	}
}

// waitFor polls cond until it holds, fails, or the deadline passes. Errors from
// the predicate itself propagate; they mean the session broke, not a slow page.
func (s *Sampler) waitFor(cond func() (bool, error), timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errWaitTimeout
		}
		time.Sleep(s.Poll)
	}
}

// extractTiming pulls the performance.timing record and derives the breakdown.
// Best effort: failure only degrades this optional field.
func (s *Sampler) extractTiming(sess Session, url string) *NavigationTiming {
	raw, err := sess.PerformanceTiming()
	if err != nil {
		s.log.Warn("could not retrieve navigation timing", "url", url, "error", err)
		return &NavigationTiming{Error: err.Error()}
	}

	navStart := raw["navigationStart"]
	if navStart <= 0 {
		return nil
	}

	nt := &NavigationTiming{
		NavigationStart:       navStart,
		FetchStart:            raw["fetchStart"],
		DNSLookupTime:         raw["domainLookupEnd"] - raw["domainLookupStart"],
		ConnectTime:           raw["connectEnd"] - raw["connectStart"],
		TTFB:                  raw["responseStart"] - raw["requestStart"],
		DOMInteractive:        raw["domInteractive"],
		DOMContentLoaded:      raw["domContentLoadedEventEnd"],
		DOMComplete:           raw["domComplete"],
		LoadEventStart:        raw["loadEventStart"],
		LoadEventEnd:          raw["loadEventEnd"],
		TotalLoadFromNavStart: -1,
		DOMProcessingTime:     -1,
	}
	if nt.LoadEventEnd > 0 {
		nt.TotalLoadFromNavStart = nt.LoadEventEnd - navStart
	}
	if nt.DOMInteractive > 0 && nt.DOMComplete > 0 {
		nt.DOMProcessingTime = nt.DOMComplete - nt.DOMInteractive
	}
	return nt
}
