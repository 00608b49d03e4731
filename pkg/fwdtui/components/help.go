package components

import (
	"net"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

// KeyGroup is a titled block of key bindings in the help overlay.
type KeyGroup struct {
	Title    string
	Bindings [][2]string
}

var (
	lineKeys = KeyGroup{"Bus lines", [][2]string{
		{"j k ↑ ↓", "scroll (up stops following)"},
		{"g G", "oldest / newest line"},
		{"PgUp PgDn", "half page"},
		{"/", "filter, esc clears"},
	}}
	logKeys = KeyGroup{"Logs", [][2]string{
		{"tab", "focus bus lines or logs"},
		{"v", "debug logs on or off"},
	}}
	bridgeKeys = KeyGroup{"Bridge", [][2]string{
		{"c", "counters and activity"},
		{"?", "close this help"},
		{"q", "stop the bridge"},
	}}
)

// HelpModel is the key binding overlay. It also tells the operator how
// to reach the telnet listener.
type HelpModel struct {
	visible bool
	width   int
	height  int
	connect string
}

// NewHelpModel creates a hidden help overlay for a bridge listening on listen.
func NewHelpModel(listen string) HelpModel {
	return HelpModel{connect: connectHint(listen)}
}

// connectHint turns a listen address into the telnet command a client
// on the same host would run. Wildcard hosts become localhost.
func connectHint(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "telnet " + host + " " + port
}

func (m *HelpModel) Update(msg tea.Msg) (HelpModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "?", "q", "esc":
			m.visible = false
		}
	}
	return *m, nil
}

func (m *HelpModel) Toggle() {
	m.visible = !m.visible
}

func (m *HelpModel) IsVisible() bool {
	return m.visible
}

func renderGroup(g KeyGroup) string {
	rows := []string{styles.HelpTitleStyle.Render(g.Title)}
	for _, b := range g.Bindings {
		rows = append(rows, styles.HelpKeyStyle.Render(b[0])+styles.HelpDescStyle.Render(b[1]))
	}
	return strings.Join(rows, "\n")
}

// View renders the overlay centered in the last known window size.
func (m *HelpModel) View() string {
	if !m.visible {
		return ""
	}

	left := lipgloss.JoinVertical(lipgloss.Left, renderGroup(lineKeys), "", renderGroup(logKeys))
	right := renderGroup(bridgeKeys)
	if m.connect != "" {
		right = lipgloss.JoinVertical(lipgloss.Left, right, "",
			styles.HelpTitleStyle.Render("Connect"),
			styles.HeaderListenStyle.Render(m.connect))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
	modal := styles.HelpModalStyle.Render(body)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
