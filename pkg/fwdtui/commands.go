package fwdtui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

// ListenMetrics creates a command that listens for metrics updates
func ListenMetrics(ch <-chan fwdmetrics.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snapshot, ok := <-ch
		if !ok {
			return nil
		}
		return MetricsUpdateMsg{Snapshot: snapshot}
	}
}

// ListenEvents creates a command that listens for bridge events
func ListenEvents(eventCh <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-eventCh
		if !ok {
			return nil
		}
		return BridgeEventMsg{Event: event}
	}
}

// ListenLogs creates a command that listens for log entries
func ListenLogs(logCh <-chan LogEntryMsg) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-logCh
		if !ok {
			return nil
		}
		return entry
	}
}

// ListenShutdown creates a command that listens for shutdown signal
func ListenShutdown(stopCh <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-stopCh
		return ShutdownMsg{}
	}
}

// SendLog creates a log entry message
func SendLog(level logrus.Level, message string) tea.Cmd {
	return func() tea.Msg {
		return LogEntryMsg{
			Level:   level,
			Message: message,
			Time:    time.Now(),
		}
	}
}
