package types

import (
	"time"

	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// StateReader provides read-only access to bridge state
type StateReader interface {
	GetSummary() state.SummaryStats
	GetLines(count int) []state.LineEntry
	GetLogs(count int) []state.LogEntry
}

// MetricsProvider provides the bridge counters
type MetricsProvider interface {
	Snapshot() fwdmetrics.Snapshot
	GetHistory(count int) []fwdmetrics.RateSample
}

// EventStreamer provides access to real-time events via channels
type EventStreamer interface {
	// Subscribe returns a channel that receives all events
	Subscribe() (<-chan events.Event, func())

	// SubscribeType returns a channel that receives events of a specific type
	SubscribeType(eventType events.EventType) (<-chan events.Event, func())
}

// ManagerInfo provides read-only access to manager configuration
type ManagerInfo interface {
	Version() string
	Uptime() time.Duration
	StartTime() time.Time
	Info() InfoResponse
}

// LogBufferProvider provides access to the system log buffer
type LogBufferProvider interface {
	// GetLast returns the last n entries (most recent first)
	GetLast(n int) []LogBufferEntry
	// Count returns the total number of entries in the buffer
	Count() int
	// Clear removes all entries from the buffer
	Clear()
}
