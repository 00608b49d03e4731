package events

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EventType represents the type of bridge event
type EventType int

const (
	// Bus events, published in the order the decoder produced them
	PanelEvent EventType = iota
	ModuleEvent
	BusConnectionChanged
	BufferOverflow

	// Client session events
	SessionOpened
	SessionClosed
	KeystrokeInjected

	// Log events
	LogMessage

	// Application lifecycle events
	ShutdownStarted
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case PanelEvent:
		return "PanelEvent"
	case ModuleEvent:
		return "ModuleEvent"
	case BusConnectionChanged:
		return "BusConnectionChanged"
	case BufferOverflow:
		return "BufferOverflow"
	case SessionOpened:
		return "SessionOpened"
	case SessionClosed:
		return "SessionClosed"
	case KeystrokeInjected:
		return "KeystrokeInjected"
	case LogMessage:
		return "LogMessage"
	case ShutdownStarted:
		return "ShutdownStarted"
	default:
		return "Unknown"
	}
}

// IsBus reports whether the event came from the bus decoder
func (e EventType) IsBus() bool {
	return e <= BufferOverflow
}

// Event represents a bridge event with all relevant data
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Bus data; Line is exactly what the client was (or would have been) sent
	Elapsed   time.Duration
	Line      string
	Binary    string
	Command   string
	Message   string
	Connected bool

	// Session identification
	SessionID  string
	RemoteAddr string

	// Keystroke injected on the bus
	Key byte

	// Log info
	LogLevel   logrus.Level
	LogMessage string
	LogFields  map[string]interface{}
}

// NewSessionEvent creates a session lifecycle event
func NewSessionEvent(eventType EventType, sessionID, remoteAddr string) Event {
	return Event{
		Type:       eventType,
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		RemoteAddr: remoteAddr,
	}
}

// NewKeystrokeEvent creates a keystroke injection event
func NewKeystrokeEvent(sessionID string, key byte) Event {
	return Event{
		Type:      KeystrokeInjected,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Key:       key,
	}
}

// NewLogEvent creates a new log message event
func NewLogEvent(level logrus.Level, message string, fields map[string]interface{}) Event {
	return Event{
		Type:       LogMessage,
		Timestamp:  time.Now(),
		LogLevel:   level,
		LogMessage: message,
		LogFields:  fields,
	}
}
