package app

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"browsebench/internal/browser"
	"browsebench/internal/report"
	"browsebench/internal/runner"
	"browsebench/internal/settings"
	"browsebench/internal/stats"
	"browsebench/internal/storage"
	"browsebench/internal/tui/styles"
	"browsebench/internal/tui/views"
)

type ClearStatusMsg struct{}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// View Enum
type ViewID int

const (
	ViewConfig ViewID = iota
	ViewDashboard
	ViewHistory
)

// RunEventMsg wraps one orchestrator event for the bubbletea loop.
type RunEventMsg struct {
	Event runner.Event
}

type runStreamClosedMsg struct{}

func waitForEvent(ch <-chan runner.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return runStreamClosedMsg{}
		}
		return RunEventMsg{Event: ev}
	}
}

type Model struct {
	Settings     settings.Settings
	SettingsPath string
	Store        *storage.Store
	Log          *slog.Logger

	Run       *runner.Runner
	RunActive bool
	events    <-chan runner.Event

	// Stats outlives individual runs; reset when a new run starts so the
	// dashboard never mixes percentiles across runs.
	Stats *stats.Stats

	Width  int
	Height int

	CurrentView ViewID
	ConfigView  views.ConfigView
	DashView    views.DashboardView
	HistoryView views.HistoryView

	// Feedback
	StatusMsg string
}

func NewModel(s settings.Settings, settingsPath string, store *storage.Store, log *slog.Logger) Model {
	return Model{
		Settings:     s,
		SettingsPath: settingsPath,
		Store:        store,
		Log:          log,
		Stats:        stats.New(),
		CurrentView:  ViewConfig,
		ConfigView:   views.NewConfigView(s),
		HistoryView:  views.NewHistoryView(store),
	}
}

func (m Model) Init() tea.Cmd {
	return m.ConfigView.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ClearStatusMsg:
		m.StatusMsg = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			if m.RunActive && m.Run != nil {
				m.Run.Stop()
			}
			return m, tea.Quit

		case "ctrl+h":
			m.HistoryView.Refresh()
			m.CurrentView = ViewHistory
			return m, nil

		case "ctrl+right":
			m.CurrentView++
			if m.CurrentView > ViewHistory {
				m.CurrentView = ViewConfig
			}
			return m, nil
		case "ctrl+left":
			m.CurrentView--
			if m.CurrentView < ViewConfig {
				m.CurrentView = ViewHistory
			}
			return m, nil

		case "ctrl+r":
			if m.CurrentView == ViewConfig && !m.RunActive {
				return m.startRun()
			}
			return m, nil

		case "ctrl+s":
			if m.RunActive && m.Run != nil {
				m.Run.Stop()
				m.StatusMsg = "Stopping test..."
				cmds = append(cmds, clearStatusCmd())
			}
			return m, tea.Batch(cmds...)

		case "ctrl+p":
			return m.export()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.ConfigView.Width = m.Width
		m.ConfigView.Height = m.Height - 4
		m.DashView.Width = m.Width
		m.HistoryView.Width = m.Width

	case RunEventMsg:
		if m.Run != nil {
			m.DashView = m.DashView.Apply(msg.Event, m.Run.Stats.Snapshot())
		}
		if done, ok := msg.Event.(runner.DoneEvent); ok {
			m.RunActive = false
			m.saveHistory()
			if done.Stopped {
				m.StatusMsg = "Run stopped."
			} else {
				m.StatusMsg = "Run complete."
			}
			cmds = append(cmds, clearStatusCmd())
		}
		cmds = append(cmds, waitForEvent(m.events))
		return m, tea.Batch(cmds...)

	case runStreamClosedMsg:
		return m, nil
	}

	// Forward everything else to the active view so inputs keep blinking and
	// tables keep scrolling.
	var cmd tea.Cmd
	switch m.CurrentView {
	case ViewConfig:
		m.ConfigView, cmd = m.ConfigView.Update(msg)
	case ViewHistory:
		m.HistoryView, cmd = m.HistoryView.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	s := m.ConfigView.GetSettings()
	if len(s.URLs) == 0 {
		m.StatusMsg = "Add at least one URL before starting."
		return m, clearStatusCmd()
	}

	m.Settings = s
	if err := settings.Save(m.SettingsPath, s, m.Log); err != nil {
		m.Log.Warn("could not save settings", "error", err)
	}

	m.Stats.Reset()
	run := runner.New(s.Config, browser.NewFactory(m.Log), m.Log)
	run.Stats = m.Stats
	m.Run = run
	m.events = run.Events()
	m.RunActive = true

	m.DashView = views.NewDashboardView(s.Config, m.Width)
	m.CurrentView = ViewDashboard

	go run.Run()

	return m, waitForEvent(m.events)
}

func (m Model) export() (tea.Model, tea.Cmd) {
	var results []runner.Result
	var cfg runner.Config

	switch m.CurrentView {
	case ViewDashboard:
		if m.Run == nil {
			m.StatusMsg = "No results to export."
			return m, clearStatusCmd()
		}
		results = m.Run.Results()
		cfg = m.Run.Cfg
	case ViewHistory:
		item := m.HistoryView.GetSelectedItem()
		if item == nil {
			m.StatusMsg = "No run selected."
			return m, clearStatusCmd()
		}
		results = item.Results
		cfg = item.Config
	default:
		return m, nil
	}

	if len(results) == 0 {
		m.StatusMsg = "No results to export."
		return m, clearStatusCmd()
	}

	filename, err := writeReport(results, cfg, m.Settings.ExportFormat)
	if err != nil {
		m.StatusMsg = fmt.Sprintf("Export failed: %v", err)
	} else {
		m.StatusMsg = fmt.Sprintf("Report exported to %s", filename)
	}
	return m, clearStatusCmd()
}

// writeReport writes the configured report format with a timestamped name.
func writeReport(results []runner.Result, cfg runner.Config, format string) (string, error) {
	ts := time.Now().Format("20060102_150405")
	testCfg := settings.Settings{Config: cfg, ExportFormat: format}.TestConfiguration()

	if format == "JSON" {
		filename := fmt.Sprintf("browse_speed_report_%s.json", ts)
		return filename, report.ExportJSON(filename, results, testCfg)
	}
	filename := fmt.Sprintf("browse_speed_report_%s.csv", ts)
	return filename, report.ExportCSV(filename, results)
}

func (m *Model) saveHistory() {
	if m.Store == nil || m.Run == nil {
		return
	}
	results := m.Run.Results()
	if len(results) == 0 {
		return
	}
	item := storage.NewHistoryItem(m.Run.Cfg, results)
	if err := m.Store.Save(item); err != nil {
		m.Log.Warn("could not save run history", "error", err)
	}
	m.HistoryView.Refresh()
}

func (m Model) View() string {
	var content string
	switch m.CurrentView {
	case ViewConfig:
		content = m.ConfigView.View()
	case ViewDashboard:
		content = m.DashView.View()
	case ViewHistory:
		content = m.HistoryView.View()
	}

	tabs := m.renderTabs()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, tabs, content, footer)
}

func (m Model) renderTabs() string {
	names := []string{"Config", "Dashboard", "History"}
	rendered := make([]string, len(names))
	for i, name := range names {
		if ViewID(i) == m.CurrentView {
			rendered[i] = styles.TabActive.Render(name)
		} else {
			rendered[i] = styles.TabBase.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, rendered...)
}

func (m Model) renderFooter() string {
	keys := []string{
		styles.RenderKey("ctrl+r", "run"),
		styles.RenderKey("ctrl+s", "stop"),
		styles.RenderKey("ctrl+p", "export"),
		styles.RenderKey("ctrl+h", "history"),
		styles.RenderKey("ctrl+q", "quit"),
	}
	footer := lipgloss.JoinHorizontal(lipgloss.Center, keys...)

	if m.StatusMsg != "" {
		footer += "  " + styles.Warn.Render(m.StatusMsg)
	}
	return styles.FooterBase.Render(footer)
}
