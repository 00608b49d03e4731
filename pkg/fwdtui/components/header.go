package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

// HeaderModel displays the application header with title, version, and the
// telnet listen address
type HeaderModel struct {
	version string
	listen  string
	source  string
	width   int
}

// NewHeaderModel creates a new header model
func NewHeaderModel(version, listen string) HeaderModel {
	return HeaderModel{
		version: version,
		listen:  listen,
	}
}

// Init initializes the header model
func (m *HeaderModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the header
func (m *HeaderModel) Update(msg tea.Msg) (HeaderModel, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
	}
	return *m, nil
}

// View renders the header
func (m *HeaderModel) View() string {
	title := styles.HeaderTitleStyle.Render("keybusfwd")
	version := styles.HeaderVersionStyle.Render(" v" + m.version)
	listen := styles.HeaderListenStyle.Render("telnet " + m.listen)

	leftPart := fmt.Sprintf(" %s%s | %s", title, version, listen)

	rightPart := styles.HeaderHintStyle.Render("[?: help]")
	if m.source != "" {
		rightPart = styles.HeaderHintStyle.Render("bus: "+m.source) + " " + rightPart
	}

	leftWidth := lipgloss.Width(leftPart)
	rightWidth := lipgloss.Width(rightPart)
	spacing := m.width - leftWidth - rightWidth - 1
	if spacing < 1 {
		spacing = 1
	}

	return leftPart + strings.Repeat(" ", spacing) + rightPart
}

// SetWidth updates the header width
func (m *HeaderModel) SetWidth(width int) {
	m.width = width
}

// SetSource names where bus frames come from (a capture file or "idle")
func (m *HeaderModel) SetSource(source string) {
	m.source = source
}
