package fwdtui

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

// MetricsUpdateMsg carries a counters snapshot from the metrics registry
type MetricsUpdateMsg struct {
	Snapshot fwdmetrics.Snapshot
}

// BridgeEventMsg wraps bridge events for the TUI
type BridgeEventMsg struct {
	Event events.Event
}

// LogEntryMsg represents a log message to display
type LogEntryMsg struct {
	Level   logrus.Level
	Message string
	Time    time.Time
}

// ShutdownMsg signals the TUI to shut down
type ShutdownMsg struct{}
