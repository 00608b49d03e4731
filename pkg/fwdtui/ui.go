package fwdtui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/components"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

// Focus tracks which component has focus
type Focus int

const (
	FocusLines Focus = iota
	FocusLogs
)

const (
	countersWidth    = 46
	countersMinWidth = 90
)

// ModelConfig holds what the root model reads from
type ModelConfig struct {
	Version         string
	Listen          string
	Source          string
	Store           *state.Store
	History         func() []fwdmetrics.RateSample
	EventCh         <-chan events.Event
	MetricsCh       <-chan fwdmetrics.Snapshot
	LogCh           <-chan LogEntryMsg
	StopCh          <-chan struct{}
	TriggerShutdown func()
}

// RootModel is the main bubbletea model
type RootModel struct {
	// Components
	header    components.HeaderModel
	lines     components.LinesModel
	counters  components.CountersModel
	logs      components.LogsModel
	statusBar components.StatusBarModel
	help      components.HelpModel

	// State
	store        *state.Store
	history      func() []fwdmetrics.RateSample
	focus        Focus
	showCounters bool
	quitting     bool

	// Dimensions
	width         int
	height        int
	linesHeight   int
	logsHeight    int
	countersShown bool

	// Channels for async updates
	eventCh   <-chan events.Event
	metricsCh <-chan fwdmetrics.Snapshot
	logCh     <-chan LogEntryMsg
	stopCh    <-chan struct{}

	triggerShutdown func()
}

// NewRootModel builds the root model from cfg
func NewRootModel(cfg ModelConfig) *RootModel {
	store := cfg.Store
	if store == nil {
		store = state.NewStore(0, 0)
	}

	header := components.NewHeaderModel(cfg.Version, cfg.Listen)
	header.SetSource(cfg.Source)

	return &RootModel{
		header:          header,
		lines:           components.NewLinesModel(store),
		counters:        components.NewCountersModel(),
		logs:            components.NewLogsModel(),
		statusBar:       components.NewStatusBarModel(),
		help:            components.NewHelpModel(cfg.Listen),
		store:           store,
		history:         cfg.History,
		focus:           FocusLines,
		showCounters:    true,
		eventCh:         cfg.EventCh,
		metricsCh:       cfg.MetricsCh,
		logCh:           cfg.LogCh,
		stopCh:          cfg.StopCh,
		triggerShutdown: cfg.TriggerShutdown,
	}
}

// Init initializes the model
func (m *RootModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		ListenMetrics(m.metricsCh),
		SendLog(log.InfoLevel, "keybusfwd TUI started. Press ? for help, q to quit."),
	}
	if m.eventCh != nil {
		cmds = append(cmds, ListenEvents(m.eventCh))
	}
	if m.logCh != nil {
		cmds = append(cmds, ListenLogs(m.logCh))
	}
	if m.stopCh != nil {
		cmds = append(cmds, ListenShutdown(m.stopCh))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m *RootModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// a panic here would leave the terminal in raw mode
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("TUI Update panic recovered: %v", r)
			model = m
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSizeMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case MetricsUpdateMsg:
		return m, m.handleMetricsUpdateMsg(msg)
	case BridgeEventMsg:
		return m, m.handleBridgeEventMsg(msg)
	case LogEntryMsg:
		return m, m.handleLogEntryMsg(msg)
	case ShutdownMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m *RootModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	if m.help.IsVisible() {
		return m.help.View()
	}

	linesTitle := m.focusAccent(FocusLines) + styles.SectionTitleStyle.Render("Bus")
	linesContent := lipgloss.NewStyle().
		Height(m.linesHeight).
		Render(m.lines.View())
	if m.countersShown {
		linesContent = lipgloss.JoinHorizontal(lipgloss.Top, linesContent, m.counters.View())
	}

	logsTitle := m.focusAccent(FocusLogs) + styles.SectionTitleStyle.Render("Logs")
	logsContent := lipgloss.NewStyle().
		Height(m.logsHeight).
		Render(m.logs.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		"",
		linesTitle,
		linesContent,
		logsTitle,
		logsContent,
		m.statusBar.View(),
	)
}

func (m *RootModel) focusAccent(f Focus) string {
	if m.focus == f {
		return styles.FocusAccentStyle.Render("▌")
	}
	return " "
}

// updateSizes recalculates component sizes
func (m *RootModel) updateSizes() {
	headerHeight := 1
	statusHeight := 1

	// blank line and two section titles
	fixedLines := 3

	availableHeight := m.height - headerHeight - statusHeight - fixedLines
	if availableHeight < 10 {
		availableHeight = 10
	}

	// bus lines get three quarters
	logsHeight := availableHeight / 4
	linesHeight := availableHeight - logsHeight
	if linesHeight < 6 {
		linesHeight = 6
	}
	if logsHeight < 3 {
		logsHeight = 3
	}
	m.linesHeight = linesHeight
	m.logsHeight = logsHeight

	linesWidth := m.width
	if linesWidth < 20 {
		linesWidth = 20
	}
	m.countersShown = m.showCounters && m.width >= countersMinWidth
	if m.countersShown {
		linesWidth -= countersWidth
		m.counters.SetSize(countersWidth)
	}

	m.header.SetWidth(m.width)
	m.lines.SetSize(linesWidth, linesHeight)
	m.logs.SetSize(m.width, logsHeight)
	m.statusBar.SetWidth(m.width)
}

func (m *RootModel) cycleFocus() {
	switch m.focus {
	case FocusLines:
		m.focus = FocusLogs
		m.lines.SetFocus(false)
		m.logs.SetFocus(true)
	case FocusLogs:
		m.focus = FocusLines
		m.lines.SetFocus(true)
		m.logs.SetFocus(false)
	}
}

func (m *RootModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.updateSizes()
	m.help, _ = m.help.Update(msg)
}

func (m *RootModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// help captures all input when visible
	if m.help.IsVisible() {
		m.help, _ = m.help.Update(msg)
		return m, nil
	}

	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.lines.IsFiltering() {
		m.lines, _ = m.lines.Update(msg)
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.help.Toggle()
		return m, nil
	case "tab":
		m.cycleFocus()
		return m, nil
	case "c":
		m.showCounters = !m.showCounters
		m.updateSizes()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusLines:
		m.lines, cmd = m.lines.Update(msg)
	case FocusLogs:
		m.logs, cmd = m.logs.Update(msg)
	}
	return m, cmd
}

func (m *RootModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonWheelUp && msg.Button != tea.MouseButtonWheelDown {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.focus {
	case FocusLines:
		m.lines, cmd = m.lines.Update(msg)
	case FocusLogs:
		m.logs, cmd = m.logs.Update(msg)
	}
	return m, cmd
}

func (m *RootModel) handleMetricsUpdateMsg(msg MetricsUpdateMsg) tea.Cmd {
	var history []fwdmetrics.RateSample
	if m.history != nil {
		history = m.history()
	}
	m.counters.UpdateSnapshot(msg.Snapshot, history)
	m.statusBar.UpdateLineRate(msg.Snapshot.LineRate)
	m.statusBar.UpdateStats(m.store.GetSummary())
	return ListenMetrics(m.metricsCh)
}

func (m *RootModel) handleBridgeEventMsg(msg BridgeEventMsg) tea.Cmd {
	switch {
	case msg.Event.Type.IsBus():
		m.lines.Refresh()
	case msg.Event.Type == events.ShutdownStarted:
		m.statusBar.SetShutdown()
	}
	m.statusBar.UpdateStats(m.store.GetSummary())
	return ListenEvents(m.eventCh)
}

func (m *RootModel) handleLogEntryMsg(msg LogEntryMsg) tea.Cmd {
	m.logs.AppendLog(msg.Level, msg.Message, msg.Time)
	return ListenLogs(m.logCh)
}
