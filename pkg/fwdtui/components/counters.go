package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

const (
	colKeyName  = "name"
	colKeyTotal = "total"
	colKeyRate  = "rate"
)

// CountersModel is the table of bridge counters with a line rate sparkline
type CountersModel struct {
	table    table.Model
	snapshot fwdmetrics.Snapshot
	history  []fwdmetrics.RateSample
	width    int
}

// NewCountersModel creates a new counters table
func NewCountersModel() CountersModel {
	columns := []table.Column{
		table.NewFlexColumn(colKeyName, "Counter", 2),
		table.NewColumn(colKeyTotal, "Total", 12),
		table.NewColumn(colKeyRate, "Rate", 12),
	}

	m := CountersModel{}
	m.table = table.New(columns).
		WithBaseStyle(lipgloss.NewStyle().Padding(0, 1)).
		BorderRounded().
		HeaderStyle(styles.TableHeaderStyle).
		Focused(false).
		WithFooterVisibility(false)
	m.UpdateSnapshot(fwdmetrics.Snapshot{}, nil)
	return m
}

// UpdateSnapshot replaces the displayed counters
func (m *CountersModel) UpdateSnapshot(s fwdmetrics.Snapshot, history []fwdmetrics.RateSample) {
	m.snapshot = s
	m.history = history

	overflows := table.NewStyledCell(fmt.Sprintf("%d", s.Overflows), styles.TableValueStyle)
	if s.Overflows > 0 {
		overflows = table.NewStyledCell(fmt.Sprintf("%d", s.Overflows), styles.TableAlertStyle)
	}

	rows := []table.Row{
		counterRow("Panel events", fmt.Sprintf("%d", s.PanelEvents), ""),
		counterRow("Module events", fmt.Sprintf("%d", s.ModuleEvents), ""),
		counterRow("Bus changes", fmt.Sprintf("%d", s.BusChanges), ""),
		table.NewRow(table.RowData{colKeyName: "Overflows", colKeyTotal: overflows, colKeyRate: ""}),
		counterRow("Lines sent", fmt.Sprintf("%d", s.LinesOut), fmt.Sprintf("%.1f/s", s.LineRate)),
		counterRow("Bytes to client", humanBytes(s.BytesOut), humanRate(s.RateOut)),
		counterRow("Bytes from client", humanBytes(s.BytesIn), humanRate(s.RateIn)),
		counterRow("Keystrokes", fmt.Sprintf("%d", s.Keystrokes), ""),
		counterRow("Telnet negotiation", humanBytes(s.NegotiationBytes), ""),
		counterRow("Sessions", fmt.Sprintf("%d", s.SessionsAccepted), fmt.Sprintf("%d busy", s.SessionsRejected)),
	}

	m.table = m.table.WithRows(rows).WithPageSize(len(rows))
	if m.width > 0 {
		m.table = m.table.WithTargetWidth(m.width - 2)
	}
}

func counterRow(name, total, rate string) table.Row {
	return table.NewRow(table.RowData{
		colKeyName:  name,
		colKeyTotal: total,
		colKeyRate:  rate,
	})
}

// View renders the table and, once there are two intervals of history,
// activity strips for bus lines and client input under it
func (m *CountersModel) View() string {
	tableView := m.table.View()

	lines := LineRates(m.history)
	if len(lines) < 2 || m.width < 20 {
		return tableView
	}

	width := m.width - 10
	return lipgloss.JoinVertical(lipgloss.Left,
		tableView,
		" lines/s "+styles.ActivityLinesStyle.Render(ActivityStrip(lines, width)),
		" input/s "+styles.ActivityInputStyle.Render(ActivityStrip(InputRates(m.history), width)),
	)
}

// SetSize updates the table width
func (m *CountersModel) SetSize(width int) {
	m.width = width
	m.table = m.table.WithTargetWidth(width - 2)
}

// humanBytes formats bytes to human-readable string
func humanBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	if exp >= len(units) {
		exp = len(units) - 1
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), units[exp])
}

// humanRate formats bytes/sec to human-readable string
func humanRate(rate float64) string {
	if rate < 1 {
		return "0 B/s"
	}
	const unit = 1024.0
	if rate < unit {
		return fmt.Sprintf("%.0f B/s", rate)
	}
	div, exp := unit, 0
	for n := rate / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	if exp >= len(units) {
		exp = len(units) - 1
	}
	return fmt.Sprintf("%.1f %cB/s", rate/div, units[exp])
}
