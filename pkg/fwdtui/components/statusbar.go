package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

// StatusBarModel displays bus and session state
type StatusBarModel struct {
	stats    state.SummaryStats
	lineRate float64
	width    int
	shutdown bool
}

// NewStatusBarModel creates a new status bar model
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{}
}

// Init initializes the status bar model
func (m *StatusBarModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the status bar
func (m *StatusBarModel) Update(msg tea.Msg) (StatusBarModel, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
	}
	return *m, nil
}

// UpdateStats updates the displayed state
func (m *StatusBarModel) UpdateStats(stats state.SummaryStats) {
	m.stats = stats
}

// UpdateLineRate sets the lines per second shown
func (m *StatusBarModel) UpdateLineRate(rate float64) {
	m.lineRate = rate
}

// SetShutdown switches the bar to the shutdown notice
func (m *StatusBarModel) SetShutdown() {
	m.shutdown = true
}

// View renders the status bar
func (m *StatusBarModel) View() string {
	if m.shutdown {
		return styles.StatusWaitingStyle.Render(" Shutting down...")
	}

	s := m.stats

	var bus string
	if s.BusConnected {
		bus = styles.StatusUpStyle.Render("Bus: connected")
	} else {
		bus = styles.StatusDownStyle.Render("Bus: disconnected")
	}

	var client string
	if s.Session != nil {
		client = styles.StatusUpStyle.Render("Client: " + s.Session.RemoteAddr)
	} else {
		client = styles.StatusWaitingStyle.Render("Client: waiting")
	}

	var overflows string
	if s.Overflows > 0 {
		overflows = styles.StatusBarErrorStyle.Render(fmt.Sprintf("Overflows: %d", s.Overflows))
	} else {
		overflows = styles.StatusUpStyle.Render("Overflows: 0")
	}

	rate := fmt.Sprintf("%.1f lines/s", m.lineRate)

	help := styles.StatusBarHelpStyle.Render("Press ? for help")

	left := fmt.Sprintf(" %s | %s | %s | %s", bus, client, overflows, rate)

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(help)
	padding := m.width - leftWidth - rightWidth - 2 // 2 for margins

	if padding < 1 {
		padding = 1
	}

	spacer := lipgloss.NewStyle().Width(padding).Render("")

	return styles.StatusBarStyle.Render(left + spacer + help + " ")
}

// SetWidth updates the status bar width
func (m *StatusBarModel) SetWidth(width int) {
	m.width = width
}
