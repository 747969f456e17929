package runner

// Browser selects which WebDriver backend a run drives.
type Browser string

const (
	BrowserChrome  Browser = "Chrome"
	BrowserFirefox Browser = "Firefox"
)

// WaitStrategy is the completion predicate used to decide a page finished loading.
type WaitStrategy string

const (
	// WaitReadyState waits for document.readyState == "complete".
	WaitReadyState WaitStrategy = "ReadyState"
	// WaitLoadEventEnd waits for performance.timing.loadEventEnd > 0.
	WaitLoadEventEnd WaitStrategy = "LoadEventEnd"
	// WaitCombined waits for readyState first, then loadEventEnd. Each phase is
	// bounded by the full timeout, so the worst case is roughly twice the
	// configured timeout. Intentional: the second phase catches late load events
	// that readyState alone misses.
	WaitCombined WaitStrategy = "Combined"
)

type Status string

const (
	StatusSuccess Status = "Success"
	StatusError   Status = "Error"
)

// Config describes one full test run: the URL matrix plus browser behavior.
type Config struct {
	URLs                 []string     `json:"urls"`
	RunsPerURL           int          `json:"runs_per_url"`
	Browser              Browser      `json:"browser"`
	Headless             bool         `json:"headless"`
	TimeoutSeconds       int          `json:"timeout_seconds"`
	WaitStrategy         WaitStrategy `json:"wait_strategy"`
	AntiDetectionEnabled bool         `json:"anti_detection_enabled"`
	RunDNSBenchmark      bool         `json:"run_dns_benchmark"`
}

// TotalSteps is the size of the URL x runs matrix.
func (c Config) TotalSteps() int {
	return len(c.URLs) * c.RunsPerURL
}

// NavigationTiming is the millisecond-resolution breakdown of one page load,
// derived from the browser's performance.timing record. Fields the browser left
// undefined are -1. Error is set instead of the fields when extraction itself
// failed; that never affects the overall run status.
type NavigationTiming struct {
	NavigationStart       float64 `json:"navigation_start,omitempty"`
	FetchStart            float64 `json:"fetch_start,omitempty"`
	DNSLookupTime         float64 `json:"dns_lookup_time,omitempty"`
	ConnectTime           float64 `json:"connect_time,omitempty"`
	TTFB                  float64 `json:"ttfb,omitempty"`
	DOMInteractive        float64 `json:"dom_interactive,omitempty"`
	DOMContentLoaded      float64 `json:"dom_content_loaded,omitempty"`
	DOMComplete           float64 `json:"dom_complete,omitempty"`
	LoadEventStart        float64 `json:"load_event_start,omitempty"`
	LoadEventEnd          float64 `json:"load_event_end,omitempty"`
	TotalLoadFromNavStart float64 `json:"total_load_from_nav_start,omitempty"`
	DOMProcessingTime     float64 `json:"dom_processing_time,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

// Result is one measured page load. Immutable once emitted; the orchestrator
// owns it until it is handed to the aggregator.
type Result struct {
	URL              string            `json:"url"`
	RunNumber        int               `json:"run_number"`
	LoadTimeMs       float64           `json:"load_time_ms"`
	Status           Status            `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	NavigationTiming *NavigationTiming `json:"navigation_timing,omitempty"`
	Timestamp        float64           `json:"timestamp"`
	Config           *Config           `json:"config,omitempty"`
}

// Session is one live browser connection, scoped to a single URL's repeated
// runs. Implementations must make Close idempotent and must not panic on a dead
// browser.
type Session interface {
	Navigate(url string) error
	ReadyState() (string, error)
	LoadEventEnd() (float64, error)
	PerformanceTiming() (map[string]float64, error)
	Reset() error
	Close() error
}

// Factory opens browser sessions. Open failures are fatal for the URL being
// tested, never for the whole run.
type Factory interface {
	Open(browser Browser, headless, antiDetection bool) (Session, error)
}
