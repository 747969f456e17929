package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"browsebench/internal/runner"
	"browsebench/internal/settings"
	"browsebench/internal/tui/styles"
)

// Field Indices
const (
	FieldURLs = iota
	FieldRuns
	FieldBrowser
	FieldHeadless
	FieldTimeout
	FieldWaitStrategy
	FieldAntiDetection
	FieldDNSBenchmark
	FieldExportFormat
	fieldCount
)

var waitStrategies = []runner.WaitStrategy{
	runner.WaitReadyState,
	runner.WaitLoadEventEnd,
	runner.WaitCombined,
}

// ConfigView is the run-configuration form. Toggle/choice fields flip with
// Space; text fields edit in place.
type ConfigView struct {
	URLs    textarea.Model
	Runs    textinput.Model
	Timeout textinput.Model

	Browser       runner.Browser
	Headless      bool
	WaitStrategy  runner.WaitStrategy
	AntiDetection bool
	DNSBenchmark  bool
	ExportFormat  string

	Focus int

	Width  int
	Height int
}

func NewConfigView(s settings.Settings) ConfigView {
	urls := textarea.New()
	urls.Placeholder = "https://example.com\nhttps://example.org"
	urls.SetValue(strings.Join(s.URLs, "\n"))
	urls.SetWidth(50)
	urls.SetHeight(5)
	urls.Focus()

	runs := textinput.New()
	runs.Placeholder = "3"
	runs.SetValue(strconv.Itoa(s.RunsPerURL))
	runs.Width = 10

	timeout := textinput.New()
	timeout.Placeholder = "60"
	timeout.SetValue(strconv.Itoa(s.TimeoutSeconds))
	timeout.Width = 10

	return ConfigView{
		URLs:          urls,
		Runs:          runs,
		Timeout:       timeout,
		Browser:       s.Browser,
		Headless:      s.Headless,
		WaitStrategy:  s.WaitStrategy,
		AntiDetection: s.AntiDetectionEnabled,
		DNSBenchmark:  s.RunDNSBenchmark,
		ExportFormat:  s.ExportFormat,
		Focus:         FieldURLs,
	}
}

func (m ConfigView) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConfigView) Update(msg tea.Msg) (ConfigView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			if msg.String() == "shift+tab" {
				m.Focus--
			} else {
				m.Focus++
			}
			if m.Focus >= fieldCount {
				m.Focus = 0
			} else if m.Focus < 0 {
				m.Focus = fieldCount - 1
			}
			m.syncFocus()
			return m, nil

		case " ":
			// Space toggles choice fields; text fields consume it as input.
			switch m.Focus {
			case FieldBrowser:
				if m.Browser == runner.BrowserChrome {
					m.Browser = runner.BrowserFirefox
				} else {
					m.Browser = runner.BrowserChrome
				}
				return m, nil
			case FieldHeadless:
				m.Headless = !m.Headless
				return m, nil
			case FieldWaitStrategy:
				m.WaitStrategy = nextStrategy(m.WaitStrategy)
				return m, nil
			case FieldAntiDetection:
				m.AntiDetection = !m.AntiDetection
				return m, nil
			case FieldDNSBenchmark:
				m.DNSBenchmark = !m.DNSBenchmark
				return m, nil
			case FieldExportFormat:
				if m.ExportFormat == "CSV" {
					m.ExportFormat = "JSON"
				} else {
					m.ExportFormat = "CSV"
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.Focus {
	case FieldURLs:
		m.URLs, cmd = m.URLs.Update(msg)
	case FieldRuns:
		m.Runs, cmd = m.Runs.Update(msg)
	case FieldTimeout:
		m.Timeout, cmd = m.Timeout.Update(msg)
	}
	return m, cmd
}

func (m *ConfigView) syncFocus() {
	m.URLs.Blur()
	m.Runs.Blur()
	m.Timeout.Blur()
	switch m.Focus {
	case FieldURLs:
		m.URLs.Focus()
	case FieldRuns:
		m.Runs.Focus()
	case FieldTimeout:
		m.Timeout.Focus()
	}
}

func nextStrategy(s runner.WaitStrategy) runner.WaitStrategy {
	for i, ws := range waitStrategies {
		if ws == s {
			return waitStrategies[(i+1)%len(waitStrategies)]
		}
	}
	return waitStrategies[0]
}

// GetSettings reads the form back into a settings record, clamping numeric
// fields to their invariants (runs >= 1, timeout >= 10).
func (m ConfigView) GetSettings() settings.Settings {
	s := settings.Defaults()

	var urls []string
	for _, line := range strings.Split(m.URLs.Value(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	s.URLs = urls

	if runs, err := strconv.Atoi(strings.TrimSpace(m.Runs.Value())); err == nil && runs >= 1 {
		s.RunsPerURL = runs
	}
	if timeout, err := strconv.Atoi(strings.TrimSpace(m.Timeout.Value())); err == nil {
		if timeout < 10 {
			timeout = 10
		}
		s.TimeoutSeconds = timeout
	}

	s.Browser = m.Browser
	s.Headless = m.Headless
	s.WaitStrategy = m.WaitStrategy
	s.AntiDetectionEnabled = m.AntiDetection
	s.RunDNSBenchmark = m.DNSBenchmark
	s.ExportFormat = m.ExportFormat
	return s
}

func (m ConfigView) helpText() string {
	switch m.Focus {
	case FieldURLs:
		return "URLs to benchmark, one per line.\nEach URL gets its own fresh browser session."
	case FieldRuns:
		return "How many times each URL is loaded.\nMinimum 1."
	case FieldBrowser:
		return "Browser to drive.\n• Chrome (chromedriver)\n• Firefox (geckodriver)\n\nPress [Space] to toggle."
	case FieldHeadless:
		return "Run the browser without a visible window.\n\nPress [Space] to toggle."
	case FieldTimeout:
		return "Per-load timeout in seconds (minimum 10).\nNote: the Combined strategy waits twice,\nso a stuck page can take up to 2x this."
	case FieldWaitStrategy:
		return "When is a page 'loaded'?\n• ReadyState: document.readyState == complete\n• LoadEventEnd: load event finished\n• Combined: both, in sequence\n\nPress [Space] to cycle."
	case FieldAntiDetection:
		return "Suppress automation signatures so sites treat\nthe visit as regular traffic. Less effective\non Firefox.\n\nPress [Space] to toggle."
	case FieldDNSBenchmark:
		return "Probe public DNS resolvers before the run\nand report their latency.\n\nPress [Space] to toggle."
	case FieldExportFormat:
		return "Report format written on export.\n• CSV: per-URL summary rows\n• JSON: summary + raw results + config\n\nPress [Space] to toggle."
	}
	return ""
}

func (m ConfigView) View() string {
	col := strings.Builder{}
	col.WriteString("\n")

	col.WriteString(m.renderField(FieldURLs, "URLs (one per line)", m.URLs.View()))
	col.WriteString(m.renderField(FieldRuns, "Runs per URL", m.Runs.View()))
	col.WriteString(m.renderField(FieldBrowser, "Browser", string(m.Browser)))
	col.WriteString(m.renderField(FieldHeadless, "Headless", onOff(m.Headless)))
	col.WriteString(m.renderField(FieldTimeout, "Timeout (s)", m.Timeout.View()))
	col.WriteString(m.renderField(FieldWaitStrategy, "Wait strategy", string(m.WaitStrategy)))
	col.WriteString(m.renderField(FieldAntiDetection, "Anti-detection", onOff(m.AntiDetection)))
	col.WriteString(m.renderField(FieldDNSBenchmark, "DNS benchmark", onOff(m.DNSBenchmark)))
	col.WriteString(m.renderField(FieldExportFormat, "Export format", m.ExportFormat))

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.ColorBorder).
		Padding(1, 2).
		Width(48)

	help := styles.Subtle.Bold(true).Render("Information") + "\n\n" +
		styles.Text.Render(m.helpText())

	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(58).Render(col.String()),
		helpBox.Render(help),
	)
}

func (m ConfigView) renderField(idx int, label, value string) string {
	style := styles.Subtle
	if idx == m.Focus {
		style = styles.Active
	}
	return fmt.Sprintf("%s\n%s\n\n", style.Render(label), value)
}

func onOff(v bool) string {
	if v {
		return styles.Success.Render("on")
	}
	return styles.Subtle.Render("off")
}
