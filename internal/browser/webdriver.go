// Package browser opens and manages WebDriver sessions. One session serves
// exactly one URL's repeated runs; the orchestrator closes it before moving on,
// which bounds state leakage between distinct URLs to one fresh session each.
package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"browsebench/internal/runner"
)

const (
	jsReadyState   = "return document.readyState"
	jsLoadEventEnd = "return window.performance.timing.loadEventEnd"
	jsPerfTiming   = "return window.performance.timing.toJSON()"
	jsClearStorage = "window.localStorage.clear(); window.sessionStorage.clear();"
	windowSizeFlag = "--window-size=1920,1080"
	aboutBlank     = "about:blank"

	// Injected on every new document so pages probing navigator.webdriver see
	// an ordinary browser.
	jsWebdriverShim = "Object.defineProperty(navigator, 'webdriver', {get: () => undefined})"
)

var cdpClient = &http.Client{Timeout: 10 * time.Second}

// Factory opens WebDriver sessions through chromedriver or geckodriver,
// resolved from PATH unless overridden.
type Factory struct {
	log *slog.Logger

	ChromeDriverPath string
	GeckoDriverPath  string
}

func NewFactory(log *slog.Logger) *Factory {
	return &Factory{
		log:              log,
		ChromeDriverPath: "chromedriver",
		GeckoDriverPath:  "geckodriver",
	}
}

// Open starts a driver service and connects a fresh session. Cache is disabled
// aggressively so repeated runs measure the network, not the disk. With
// antiDetection set, automation signatures are suppressed as far as the
// browser allows; Firefox offers less surface than Chrome and the gap is
// accepted, not retried.
func (f *Factory) Open(b runner.Browser, headless, antiDetection bool) (runner.Session, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("no free port for driver service: %w", err)
	}

	switch b {
	case runner.BrowserChrome:
		return f.openChrome(port, headless, antiDetection)
	case runner.BrowserFirefox:
		return f.openFirefox(port, headless, antiDetection)
	default:
		return nil, fmt.Errorf("unsupported browser: %q", b)
	}
}

func (f *Factory) openChrome(port int, headless, antiDetection bool) (runner.Session, error) {
	service, err := selenium.NewChromeDriverService(f.ChromeDriverPath, port)
	if err != nil {
		return nil, fmt.Errorf("chromedriver setup failed: %w", err)
	}

	args := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		// Aggressive cache disabling
		"--disable-application-cache",
		"--disk-cache-size=1",
		"--media-cache-size=1",
	}
	if headless {
		args = append(args, "--headless", windowSizeFlag)
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	chromeCaps := chrome.Capabilities{Args: args}
	if antiDetection {
		chromeCaps.ExcludeSwitches = []string{"enable-automation"}
		chromeCaps.Args = append(chromeCaps.Args, "--disable-blink-features=AutomationControlled")
	}
	caps.AddChrome(chromeCaps)

	remoteURL := fmt.Sprintf("http://localhost:%d/wd/hub", port)
	wd, err := selenium.NewRemote(caps, remoteURL)
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("chrome session failed: %w", err)
	}

	s := &session{wd: wd, service: service, browser: runner.BrowserChrome, cdpURL: remoteURL, log: f.log}
	if antiDetection {
		// Capability flags alone leave navigator.webdriver set; the shim has
		// to ride in over CDP so it runs before any page script.
		err := s.cdp("Page.addScriptToEvaluateOnNewDocument", map[string]interface{}{
			"source": jsWebdriverShim,
		})
		if err != nil {
			f.log.Warn("webdriver shim injection failed", "error", err)
		}
	}

	f.log.Info("browser session opened",
		"browser", "chrome", "headless", headless, "anti_detection", antiDetection)
	return s, nil
}

func (f *Factory) openFirefox(port int, headless, antiDetection bool) (runner.Session, error) {
	service, err := selenium.NewGeckoDriverService(f.GeckoDriverPath, port)
	if err != nil {
		return nil, fmt.Errorf("geckodriver setup failed: %w", err)
	}

	prefs := map[string]interface{}{
		// Aggressive cache disabling
		"browser.cache.disk.enable":    false,
		"browser.cache.memory.enable":  false,
		"browser.cache.offline.enable": false,
		"network.http.use-cache":       false,
	}
	if antiDetection {
		prefs["dom.webdriver.enabled"] = false
		prefs["useAutomationExtension"] = false
	}

	ffCaps := firefox.Capabilities{Prefs: prefs}
	if headless {
		ffCaps.Args = append(ffCaps.Args, "-headless", windowSizeFlag)
	}

	caps := selenium.Capabilities{"browserName": "firefox"}
	caps.AddFirefox(ffCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d", port))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("firefox session failed: %w", err)
	}

	f.log.Info("browser session opened",
		"browser", "firefox", "headless", headless, "anti_detection", antiDetection)
	return &session{wd: wd, service: service, browser: runner.BrowserFirefox, log: f.log}, nil
}

// session adapts a selenium.WebDriver plus its driver service to the runner's
// Session contract.
type session struct {
	wd      selenium.WebDriver
	service *selenium.Service
	browser runner.Browser
	log     *slog.Logger

	// cdpURL is the chromedriver remote base; empty for browsers without a
	// DevTools bridge.
	cdpURL string

	closeOnce sync.Once
	closeErr  error
}

// cdp issues one DevTools command through chromedriver's vendor endpoint.
func (s *session) cdp(cmd string, params map[string]interface{}) error {
	if s.cdpURL == "" {
		return fmt.Errorf("no cdp endpoint for %s", s.browser)
	}
	return executeCDP(cdpClient, s.cdpURL, s.wd.SessionID(), cmd, params)
}

// executeCDP posts a Chrome DevTools command to chromedriver's
// /session/{id}/goog/cdp/execute endpoint.
func executeCDP(client *http.Client, baseURL, sessionID, cmd string, params map[string]interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{"cmd": cmd, "params": params})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/session/%s/goog/cdp/execute", baseURL, sessionID)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cdp %s: %w", cmd, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// chromedriver wraps failures as {"value": {"error": ..., "message": ...}}.
	var wdErr struct {
		Value struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		} `json:"value"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if json.Unmarshal(raw, &wdErr) == nil && wdErr.Value.Message != "" {
		return fmt.Errorf("cdp %s: %s: %s", cmd, wdErr.Value.Error, wdErr.Value.Message)
	}
	return fmt.Errorf("cdp %s: status %d", cmd, resp.StatusCode)
}

func (s *session) Navigate(url string) error {
	return s.wd.Get(url)
}

func (s *session) ReadyState() (string, error) {
	v, err := s.wd.ExecuteScript(jsReadyState, nil)
	if err != nil {
		return "", err
	}
	state, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected readyState type %T", v)
	}
	return state, nil
}

func (s *session) LoadEventEnd() (float64, error) {
	v, err := s.wd.ExecuteScript(jsLoadEventEnd, nil)
	if err != nil {
		return 0, err
	}
	return toFloat(v)
}

func (s *session) PerformanceTiming() (map[string]float64, error) {
	v, err := s.wd.ExecuteScript(jsPerfTiming, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected performance.timing type %T", v)
	}
	timing := make(map[string]float64, len(raw))
	for k, val := range raw {
		f, err := toFloat(val)
		if err != nil {
			continue
		}
		timing[k] = f
	}
	return timing, nil
}

// Reset clears cookies and web storage between runs. On Chrome the storage
// wipe goes through CDP and covers every origin; elsewhere (or when CDP fails)
// a script clears the current origin before navigating to about:blank. The
// first failure is returned for the caller to log; a failed reset never aborts
// the run.
func (s *session) Reset() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	cleared := false
	if s.cdpURL != "" {
		err := s.cdp("Storage.clearDataForOrigin", map[string]interface{}{
			"origin":       "*",
			"storageTypes": "all",
		})
		if err != nil {
			s.log.Warn("cdp storage clear failed, falling back to script", "error", err)
		} else {
			cleared = true
		}
	}
	if !cleared {
		if _, err := s.wd.ExecuteScript(jsClearStorage, nil); err != nil {
			keep(fmt.Errorf("clearing web storage: %w", err))
		}
	}
	keep(s.wd.DeleteAllCookies())
	keep(s.wd.Get(aboutBlank))
	return first
}

// Close quits the browser and stops the driver service. Idempotent.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.wd.Quit(); err != nil {
			s.log.Warn("error quitting browser", "browser", string(s.browser), "error", err)
			s.closeErr = err
		}
		if err := s.service.Stop(); err != nil {
			s.log.Warn("error stopping driver service", "browser", string(s.browser), "error", err)
			if s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
