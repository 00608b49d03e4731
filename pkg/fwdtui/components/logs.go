package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/txn2/keybusfwd/pkg/fwdtui/styles"
)

const maxLogLines = 1000

// LogEntry represents a single log entry
type LogEntry struct {
	Time    time.Time
	Level   logrus.Level
	Message string
}

// LogsModel displays the bridge's own log output, below the bus lines
type LogsModel struct {
	viewport viewport.Model
	logs     []LogEntry
	minLevel logrus.Level
	width    int
	height   int
	focused  bool
	ready    bool
}

// NewLogsModel creates a new logs model showing info and above
func NewLogsModel() LogsModel {
	return LogsModel{
		logs:     make([]LogEntry, 0, maxLogLines),
		minLevel: logrus.InfoLevel,
	}
}

// Init initializes the logs model
func (m LogsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the logs viewport
func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		switch msg.String() {
		case "j", "down":
			m.viewport.LineDown(1)
		case "k", "up":
			m.viewport.LineUp(1)
		case "g", "home":
			m.viewport.GotoTop()
		case "G", "end":
			m.viewport.GotoBottom()
		case "pgdown":
			m.viewport.HalfViewDown()
		case "pgup":
			m.viewport.HalfViewUp()
		case "v":
			m.ToggleVerbose()
		}
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// AppendLog adds a log entry
func (m *LogsModel) AppendLog(level logrus.Level, message string, t time.Time) {
	m.logs = append(m.logs, LogEntry{
		Time:    t,
		Level:   level,
		Message: message,
	})

	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}

	m.updateContent()
	if m.ready {
		m.viewport.GotoBottom()
	}
}

// ToggleVerbose switches between info and debug as the lowest level shown
func (m *LogsModel) ToggleVerbose() {
	if m.minLevel == logrus.DebugLevel {
		m.minLevel = logrus.InfoLevel
	} else {
		m.minLevel = logrus.DebugLevel
	}
	m.updateContent()
}

// Visible returns the entries at or above the current level
func (m *LogsModel) Visible() []LogEntry {
	out := make([]LogEntry, 0, len(m.logs))
	for _, e := range m.logs {
		// logrus levels grow more verbose as the value increases
		if e.Level <= m.minLevel {
			out = append(out, e)
		}
	}
	return out
}

// updateContent rebuilds the viewport content from logs
func (m *LogsModel) updateContent() {
	if !m.ready {
		return
	}

	var sb strings.Builder
	for _, entry := range m.Visible() {
		sb.WriteString(m.formatLogEntry(entry))
		sb.WriteString("\n")
	}

	m.viewport.SetContent(sb.String())
}

func levelLabel(level logrus.Level) (lipgloss.Style, string) {
	switch level {
	case logrus.PanicLevel:
		return styles.LogPanicStyle, "PANIC"
	case logrus.FatalLevel:
		return styles.LogFatalStyle, "FATAL"
	case logrus.ErrorLevel:
		return styles.LogErrorStyle, "ERROR"
	case logrus.WarnLevel:
		return styles.LogWarnStyle, "WARN"
	case logrus.DebugLevel:
		return styles.LogDebugStyle, "DEBUG"
	case logrus.TraceLevel:
		return styles.LogTraceStyle, "TRACE"
	default:
		return styles.LogInfoStyle, "INFO"
	}
}

// formatLogEntry formats a log entry with colors and wrapping
func (m *LogsModel) formatLogEntry(entry LogEntry) string {
	timestamp := styles.LogTimestampStyle.Render(entry.Time.Format("[15:04:05]"))
	message := strings.TrimRight(entry.Message, "\n\r")

	levelStyle, levelStr := levelLabel(entry.Level)
	level := levelStyle.Render(fmt.Sprintf("[%s]", levelStr))

	// [HH:MM:SS][LEVEL] is about 18 columns
	prefixWidth := 18
	availableWidth := m.width - prefixWidth - 1
	if availableWidth < 20 {
		availableWidth = 20
	}

	if len(message) > availableWidth {
		message = wrapText(message, availableWidth, prefixWidth)
	}

	return fmt.Sprintf("%s%s %s", timestamp, level, message)
}

// wrapText wraps text to fit within width, indenting continuation lines
func wrapText(text string, width, indent int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	indentStr := strings.Repeat(" ", indent)
	remaining := text
	firstLine := true

	for len(remaining) > 0 {
		if !firstLine {
			result.WriteString("\n")
			result.WriteString(indentStr)
		}

		if len(remaining) <= width {
			result.WriteString(remaining)
			break
		}

		breakPoint := width
		for i := width; i > width/2; i-- {
			if remaining[i] == ' ' {
				breakPoint = i
				break
			}
		}

		result.WriteString(remaining[:breakPoint])
		remaining = strings.TrimLeft(remaining[breakPoint:], " ")
		firstLine = false
	}

	return result.String()
}

// View renders the logs viewport
func (m LogsModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View()
}

// SetFocus sets the focus state
func (m *LogsModel) SetFocus(focused bool) {
	m.focused = focused
}

// SetSize updates the viewport dimensions
func (m *LogsModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.viewport.Style = lipgloss.NewStyle()
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
	m.updateContent()
}

// Clear removes all log entries
func (m *LogsModel) Clear() {
	m.logs = make([]LogEntry, 0, maxLogLines)
	m.updateContent()
}
