package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

// LinesModel is the scrolling view of bus lines. It follows the newest line
// until the user scrolls up, and G resumes following.
type LinesModel struct {
	store      *state.Store
	viewport   viewport.Model
	entries    []state.LineEntry
	width      int
	height     int
	focused    bool
	ready      bool
	follow     bool
	filtering  bool
	filterText string
}

// NewLinesModel creates a new bus line view backed by store
func NewLinesModel(store *state.Store) LinesModel {
	return LinesModel{
		store:   store,
		focused: true,
		follow:  true,
	}
}

// Init initializes the lines model
func (m LinesModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the lines viewport
func (m LinesModel) Update(msg tea.Msg) (LinesModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.filtering {
			m.handleFilterKeyMsg(msg)
			return m, nil
		}
		if !m.focused {
			return m, nil
		}
		switch msg.String() {
		case "/":
			m.filtering = true
			m.filterText = m.store.GetFilter()
			return m, nil
		case "esc":
			m.store.SetFilter("")
			m.filterText = ""
			m.Refresh()
			return m, nil
		case "j", "down":
			m.viewport.LineDown(1)
		case "k", "up":
			m.viewport.LineUp(1)
			m.follow = false
		case "g", "home":
			m.viewport.GotoTop()
			m.follow = false
		case "G", "end":
			m.viewport.GotoBottom()
			m.follow = true
		case "pgdown":
			m.viewport.HalfViewDown()
		case "pgup":
			m.viewport.HalfViewUp()
			m.follow = false
		}
		if m.viewport.AtBottom() {
			m.follow = true
		}
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		if _, ok := msg.(tea.MouseMsg); ok {
			m.follow = m.viewport.AtBottom()
		}
	}
	return m, cmd
}

func (m *LinesModel) handleFilterKeyMsg(msg tea.KeyMsg) {
	switch msg.String() {
	case "enter", "esc":
		m.filtering = false
		if msg.String() == "enter" {
			m.store.SetFilter(m.filterText)
		} else {
			m.filterText = m.store.GetFilter()
		}
		m.Refresh()
	case "backspace":
		if len(m.filterText) > 0 {
			m.filterText = m.filterText[:len(m.filterText)-1]
		}
	default:
		if len(msg.String()) == 1 {
			m.filterText += msg.String()
		}
	}
}

// Refresh reloads the lines from the store
func (m *LinesModel) Refresh() {
	m.entries = m.store.GetLines(0)
	m.updateContent()
}

// updateContent rebuilds the viewport content from entries
func (m *LinesModel) updateContent() {
	if !m.ready {
		return
	}

	var sb strings.Builder
	for i, entry := range m.entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(styles.ForLineKind(entry.Kind).Render(entry.Line))
	}
	m.viewport.SetContent(sb.String())

	if m.follow {
		m.viewport.GotoBottom()
	}
}

// View renders the lines viewport (no border, parent handles that)
func (m LinesModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var filterLine string
	if m.filtering {
		filterLine = fmt.Sprintf(" Filter: %s█", m.filterText)
	} else if m.filterText != "" {
		filterLine = fmt.Sprintf(" Filter: %s (press Esc to clear)", m.filterText)
	}

	if len(m.entries) == 0 && filterLine == "" {
		return styles.LineElapsedStyle.Render(" Waiting for bus data...")
	}

	if filterLine != "" {
		return lipgloss.JoinVertical(lipgloss.Left, filterLine, m.viewport.View())
	}
	return m.viewport.View()
}

// SetFocus sets the focus state
func (m *LinesModel) SetFocus(focused bool) {
	m.focused = focused
}

// IsFiltering reports whether filter text is being typed
func (m *LinesModel) IsFiltering() bool {
	return m.filtering
}

// IsFollowing reports whether the view tracks the newest line
func (m *LinesModel) IsFollowing() bool {
	return m.follow
}

// LineCount returns how many lines are shown
func (m *LinesModel) LineCount() int {
	return len(m.entries)
}

// SetSize updates the viewport dimensions
func (m *LinesModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	// one row for a possible filter line
	vpHeight := height - 1
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.Style = lipgloss.NewStyle()
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.updateContent()
}
