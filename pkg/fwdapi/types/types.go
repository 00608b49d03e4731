package types

import (
	"time"

	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// Response is the standard API response wrapper
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo provides error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo provides response metadata
type MetaInfo struct {
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NotReady builds the response for a dependency that was not wired
func NotReady(what string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    "NOT_READY",
			Message: what + " not available",
		},
	}
}

// === Health Types ===

// HealthResponse provides health status
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy", "degraded"
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// InfoResponse provides detailed runtime information
type InfoResponse struct {
	Version      string    `json:"version"`
	GoVersion    string    `json:"goVersion"`
	Platform     string    `json:"platform"`
	StartTime    time.Time `json:"startTime"`
	Uptime       string    `json:"uptime"`
	ListenAddr   string    `json:"listenAddr"`
	DecoderKind  string    `json:"decoder"`
	TUIEnabled   bool      `json:"tuiEnabled"`
	APIEnabled   bool      `json:"apiEnabled"`
	Recording    bool      `json:"recording"`
	ModuleData   bool      `json:"processModuleData"`
	HideDigits   bool      `json:"hideDigits"`
	TrailingBits bool      `json:"displayTrailingBits"`
}

// === Bridge Types ===

// StatusResponse summarizes the bridge
type StatusResponse struct {
	Status       string                 `json:"status"` // "attached", "waiting", "bus-down"
	BusConnected bool                   `json:"busConnected"`
	Session      *state.SessionSnapshot `json:"session,omitempty"`
	Summary      state.SummaryStats     `json:"summary"`
	Message      string                 `json:"message"`
}

// LinesResponse contains recent bus lines
type LinesResponse struct {
	Lines []state.LineEntry `json:"lines"`
}

// MetricsResponse contains the bridge counters
type MetricsResponse struct {
	Counters fwdmetrics.Snapshot     `json:"counters"`
	History  []fwdmetrics.RateSample `json:"history,omitempty"`
	Uptime   string                  `json:"uptime"`
}

// LogsResponse contains recent log entries
type LogsResponse struct {
	Logs []LogBufferEntry `json:"logs"`
}

// === Event Types (for SSE and WebSocket) ===

// EventResponse represents an event for streaming
type EventResponse struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// === Log Buffer Types ===

// LogBufferEntry represents a single entry in the system log buffer
type LogBufferEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}
