package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"browsebench/internal/runner"
	"browsebench/internal/storage"
	"browsebench/internal/tui/styles"
)

// HistoryView lists completed runs from the bolt store for review/re-export.
type HistoryView struct {
	Store *storage.Store
	Table table.Model
	Items []storage.HistoryItem

	Width  int
	Height int
}

func NewHistoryView(store *storage.Store) HistoryView {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Browser", Width: 9},
		{Title: "URLs", Width: 6},
		{Title: "Runs", Width: 6},
		{Title: "OK", Width: 6},
		{Title: "Err", Width: 6},
		{Title: "First URL", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	s.Selected = s.Selected.
		Background(styles.ColorPrimary).
		Bold(true)
	t.SetStyles(s)

	m := HistoryView{Store: store, Table: t}
	m.Refresh()
	return m
}

func (m *HistoryView) Refresh() {
	if m.Store == nil {
		return
	}
	m.Items = m.Store.List()

	rows := make([]table.Row, 0, len(m.Items))
	for _, item := range m.Items {
		ok, errs := 0, 0
		for _, r := range item.Results {
			if r.Status == runner.StatusSuccess {
				ok++
			} else {
				errs++
			}
		}
		first := ""
		if len(item.Config.URLs) > 0 {
			first = item.Config.URLs[0]
		}
		rows = append(rows, table.Row{
			item.Timestamp.Format("2006-01-02 15:04:05"),
			string(item.Config.Browser),
			fmt.Sprintf("%d", len(item.Config.URLs)),
			fmt.Sprintf("%d", item.Config.RunsPerURL),
			fmt.Sprintf("%d", ok),
			fmt.Sprintf("%d", errs),
			first,
		})
	}
	m.Table.SetRows(rows)
}

// GetSelectedItem returns the highlighted run, or nil when the list is empty.
func (m HistoryView) GetSelectedItem() *storage.HistoryItem {
	idx := m.Table.Cursor()
	if idx < 0 || idx >= len(m.Items) {
		return nil
	}
	return &m.Items[idx]
}

func (m HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m HistoryView) View() string {
	out := strings.Builder{}
	out.WriteString(styles.Title.Render("Run History"))
	out.WriteString("\n\n")
	if len(m.Items) == 0 {
		out.WriteString(styles.Subtle.Render("No completed runs yet."))
		return out.String()
	}
	out.WriteString(m.Table.View())
	out.WriteString("\n\n")
	out.WriteString(styles.RenderKey("ctrl+p", "export selected run"))
	return out.String()
}
