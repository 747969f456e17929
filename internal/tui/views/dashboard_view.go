package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"browsebench/internal/dnsbench"
	"browsebench/internal/runner"
	"browsebench/internal/stats"
	"browsebench/internal/tui/components"
	"browsebench/internal/tui/styles"
)

const recentResultLimit = 8

// DashboardView renders a run in flight: progress, status line, live
// percentiles, a load-time sparkline, the most recent results, and the DNS
// probe table when the phase ran.
type DashboardView struct {
	Config   runner.Config
	Progress progress.Model

	Current int
	Total   int
	Status  string
	Done    bool
	Stopped bool

	Recent   []runner.Result
	DNS      dnsbench.Results
	Snapshot stats.Snapshot
	Spark    components.Sparkline

	Width  int
	Height int
}

func NewDashboardView(cfg runner.Config, width int) DashboardView {
	prog := progress.New(
		progress.WithGradient("#2D9CDB", "#04B575"),
		progress.WithWidth(width-12),
		progress.WithoutPercentage(),
	)
	return DashboardView{
		Config:   cfg,
		Progress: prog,
		Total:    cfg.TotalSteps(),
		Spark:    components.NewSparkline(40, "Load times (window max scaled)", styles.Value),
		Width:    width,
	}
}

// Apply folds one run event into the view. snap is the live stats snapshot
// taken at the same time.
func (m DashboardView) Apply(ev runner.Event, snap stats.Snapshot) DashboardView {
	m.Snapshot = snap
	switch ev := ev.(type) {
	case runner.ProgressEvent:
		m.Current = ev.Current
		m.Total = ev.Total
	case runner.StatusEvent:
		m.Status = ev.Message
	case runner.ResultEvent:
		m.Recent = append(m.Recent, ev.Result)
		if len(m.Recent) > recentResultLimit {
			m.Recent = m.Recent[len(m.Recent)-recentResultLimit:]
		}
		if ev.Result.Status == runner.StatusSuccess {
			m.Spark.Add(ev.Result.LoadTimeMs)
		}
	case runner.FatalEvent:
		m.Status = ev.Message
	case runner.DNSResultsEvent:
		m.DNS = ev.Results
	case runner.DoneEvent:
		m.Done = true
		m.Stopped = ev.Stopped
	}
	return m
}

func (m DashboardView) View() string {
	out := strings.Builder{}

	out.WriteString(styles.Title.Render("Run Dashboard"))
	out.WriteString("\n\n")

	pct := 0.0
	if m.Total > 0 {
		pct = float64(m.Current) / float64(m.Total)
	}
	out.WriteString(fmt.Sprintf("%s %d/%d\n\n", m.Progress.ViewAs(pct), m.Current, m.Total))

	statusStyle := styles.Text
	if m.Done {
		if m.Stopped {
			statusStyle = styles.Warn
		} else {
			statusStyle = styles.Success
		}
	}
	out.WriteString(statusStyle.Render(m.Status))
	out.WriteString("\n\n")

	out.WriteString(m.renderStats())
	out.WriteString("\n")
	out.WriteString(m.Spark.View())
	out.WriteString("\n\n")
	out.WriteString(m.renderRecent())

	if len(m.DNS) > 0 {
		out.WriteString("\n")
		out.WriteString(m.renderDNS())
	}

	return out.String()
}

func (m DashboardView) renderStats() string {
	s := m.Snapshot
	cells := []string{
		statCell("Runs", fmt.Sprintf("%d", s.Runs)),
		statCell("OK", fmt.Sprintf("%d", s.Success)),
		statCell("Err", fmt.Sprintf("%d", s.Fail)),
		statCell("P50", fmt.Sprintf("%.0f ms", s.P50Ms)),
		statCell("P90", fmt.Sprintf("%.0f ms", s.P90Ms)),
		statCell("P99", fmt.Sprintf("%.0f ms", s.P99Ms)),
		statCell("Max", fmt.Sprintf("%.0f ms", s.MaxMs)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func statCell(label, value string) string {
	return styles.Box.Render(
		styles.Subtle.Render(label) + " " + styles.Value.Render(value))
}

func (m DashboardView) renderRecent() string {
	if len(m.Recent) == 0 {
		return styles.Subtle.Render("Waiting for first result...")
	}

	out := strings.Builder{}
	out.WriteString(styles.Subtle.Bold(true).Render("Recent results"))
	out.WriteString("\n")
	for _, r := range m.Recent {
		if r.Status == runner.StatusSuccess {
			out.WriteString(fmt.Sprintf("  %s  run %d  %s\n",
				styles.Success.Render(fmt.Sprintf("%8.0f ms", r.LoadTimeMs)),
				r.RunNumber,
				styles.Text.Render(truncate(r.URL, 48))))
		} else {
			out.WriteString(fmt.Sprintf("  %s  run %d  %s  %s\n",
				styles.Error.Render("   failed"),
				r.RunNumber,
				styles.Text.Render(truncate(r.URL, 36)),
				styles.Error.Render(truncate(r.ErrorMessage, 40))))
		}
	}
	return out.String()
}

func (m DashboardView) renderDNS() string {
	labels := make([]string, 0, len(m.DNS))
	for label := range m.DNS {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := strings.Builder{}
	out.WriteString(styles.Subtle.Bold(true).Render("DNS latency"))
	out.WriteString("\n")
	for _, label := range labels {
		probe := m.DNS[label]
		if probe.Status == "Success" {
			out.WriteString(fmt.Sprintf("  %-32s %s\n",
				label, styles.Value.Render(fmt.Sprintf("%.2f ms", probe.LatencyMs))))
		} else {
			out.WriteString(fmt.Sprintf("  %-32s %s\n",
				label, styles.Error.Render(probe.Status)))
		}
	}
	return out.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
