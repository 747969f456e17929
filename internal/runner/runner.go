// Package runner drives the URL x runs test matrix against a live browser
// session and publishes an ordered event stream for the foreground.
package runner

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"browsebench/internal/dnsbench"
	"browsebench/internal/stats"
)

// Measurer is the timing-sampler seam; satisfied by *Sampler and by test fakes.
type Measurer interface {
	Measure(sess Session, url string, timeoutSec int, strategy WaitStrategy) Result
}

// ProbeFunc runs the optional DNS pre-step. An error degrades the DNS phase to
// a single error entry; it is never fatal to the main run.
type ProbeFunc func() (dnsbench.Results, error)

// Runner owns one test run: exactly one Run is active at a time and it is the
// sole owner of the browser session while running. The foreground issues Stop
// and drains Events.
type Runner struct {
	Cfg     Config
	Stats   *stats.Stats
	Sampler Measurer

	log     *slog.Logger
	factory Factory
	probe   ProbeFunc

	events  chan Event
	stopped atomic.Bool

	mu      sync.Mutex
	results []Result
}

func New(cfg Config, factory Factory, log *slog.Logger) *Runner {
	return &Runner{
		Cfg:     cfg,
		Stats:   stats.New(),
		Sampler: NewSampler(log),
		log:     log,
		factory: factory,
		probe: func() (dnsbench.Results, error) {
			return dnsbench.New(log).Run(), nil
		},
		events: make(chan Event, 64),
	}
}

// SetProbe replaces the DNS probe collaborator. Must be called before Run.
func (r *Runner) SetProbe(p ProbeFunc) { r.probe = p }

// Events is the run's ordered event stream. Closed after DoneEvent.
func (r *Runner) Events() <-chan Event { return r.events }

// Stop requests cooperative cancellation. It is advisory: an in-flight page
// wait always resolves (success or timeout) before the request is observed, so
// a pathological load can delay the stop by up to ~2x the configured timeout.
func (r *Runner) Stop() {
	r.log.Info("stop requested")
	r.stopped.Store(true)
}

func (r *Runner) stopping() bool { return r.stopped.Load() }

// Results returns a copy of the append-only result sequence so far.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Run executes the full matrix. Blocking; callers start it in a goroutine and
// drain Events. Emits DoneEvent exactly once on every path, then closes the
// stream.
func (r *Runner) Run() {
	defer close(r.events)

	total := r.Cfg.TotalSteps()
	step := 0

	if r.Cfg.RunDNSBenchmark {
		r.runDNSPhase()
	}

	// Cancellation boundary between the DNS phase and the browse loop.
	if r.stopping() {
		r.emit(StatusEvent{"Test stopped after DNS benchmark."})
		r.emit(DoneEvent{Stopped: true})
		return
	}

	r.emit(StatusEvent{"Starting browse speed tests..."})

	for _, url := range r.Cfg.URLs {
		if r.stopping() {
			break
		}

		r.emit(StatusEvent{fmt.Sprintf("Initializing browser for URL: %s...", url)})
		sess, err := r.factory.Open(r.Cfg.Browser, r.Cfg.Headless, r.Cfg.AntiDetectionEnabled)
		if err != nil {
			// Fault isolation: this URL's runs all fail, the run itself goes on.
			step = r.failAllRuns(url, err, step, total)
			continue
		}
		r.emit(StatusEvent{fmt.Sprintf("Browser ready for %s.", url)})

		r.emit(StatusEvent{fmt.Sprintf("Testing URL: %s (%d runs)", url, r.Cfg.RunsPerURL)})
		for run := 1; run <= r.Cfg.RunsPerURL; run++ {
			if r.stopping() {
				r.log.Info("stopping inner loop", "url", url)
				break
			}

			step++
			r.emit(ProgressEvent{Current: step, Total: total})
			r.emit(StatusEvent{fmt.Sprintf("Running test %d/%d for %s...", run, r.Cfg.RunsPerURL, url)})

			res := r.Sampler.Measure(sess, url, r.Cfg.TimeoutSeconds, r.Cfg.WaitStrategy)
			res.RunNumber = run
			res.Config = r.configCopy()

			// Re-check before emission: a stop requested mid-measure drops
			// this result rather than emitting past the request. A dropped
			// result stays out of the live stats too, so the snapshot always
			// matches the emitted stream.
			if r.stopping() {
				r.log.Info("skipping result emission after stop", "url", url, "run", run)
				break
			}
			r.Stats.Record(res.Status == StatusSuccess, res.LoadTimeMs)
			r.record(res)
			r.emit(ResultEvent{Result: res})

			if err := sess.Reset(); err != nil {
				r.log.Warn("error resetting browser state", "url", url, "error", err)
			}
		}

		if err := sess.Close(); err != nil {
			r.log.Warn("error closing browser", "url", url, "error", err)
		} else {
			r.emit(StatusEvent{fmt.Sprintf("Browser closed for %s.", url)})
		}

		if r.stopping() {
			r.log.Info("stopping outer loop", "url", url)
			break
		}
	}

	stopped := r.stopping()
	if stopped {
		r.emit(StatusEvent{"Test stopped by user."})
	} else {
		r.emit(StatusEvent{"Testing finished."})
	}
	r.emit(DoneEvent{Stopped: stopped})
}

// runDNSPhase is fully sequential and not cancellable mid-probe; cancellation
// is only observed at the phase boundary by the caller.
func (r *Runner) runDNSPhase() {
	r.emit(StatusEvent{"Running DNS latency benchmark..."})
	results, err := r.probe()
	if err != nil {
		r.log.Error("dns benchmark failed", "error", err)
		r.emit(DNSResultsEvent{Results: dnsbench.Results{
			"Error": {LatencyMs: -1, Status: err.Error()},
		}})
		r.emit(StatusEvent{fmt.Sprintf("Error during DNS benchmark: %v", err)})
		return
	}
	r.emit(DNSResultsEvent{Results: results})
	r.emit(StatusEvent{"DNS benchmark finished."})
}

// failAllRuns emits one Error result per planned run of url so downstream
// aggregation still sees runs_per_url attempts, plus a Fatal notice for the
// operator. Returns the advanced step counter.
func (r *Runner) failAllRuns(url string, setupErr error, step, total int) int {
	fatal := fmt.Sprintf("Fatal error initializing browser for %s: %v", url, setupErr)
	r.log.Error("browser setup failed", "url", url, "error", setupErr)
	r.emit(StatusEvent{fatal})
	r.emit(FatalEvent{Message: fatal})

	msg := fmt.Sprintf("Browser setup failed: %v", setupErr)
	for run := 1; run <= r.Cfg.RunsPerURL; run++ {
		step++
		r.emit(ProgressEvent{Current: step, Total: total})
		res := Result{
			URL:          url,
			RunNumber:    run,
			LoadTimeMs:   -1,
			Status:       StatusError,
			ErrorMessage: msg,
			Timestamp:    float64(time.Now().UnixMilli()) / 1000,
			Config:       r.configCopy(),
		}
		r.Stats.Record(false, -1)
		r.record(res)
		r.emit(ResultEvent{Result: res})
	}
	return step
}

func (r *Runner) record(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *Runner) configCopy() *Config {
	cfg := r.Cfg
	cfg.URLs = append([]string(nil), r.Cfg.URLs...)
	return &cfg
}

func (r *Runner) emit(e Event) {
	r.events <- e
}
