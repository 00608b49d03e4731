/*
Copyright 2018-2024 Craig Johnston <cjimti@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package state

import (
	"time"
)

// LineEntry is one bus line as it was sent (or would have been sent) to
// the client
type LineEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed"`
	Kind      string        `json:"kind"`
	Line      string        `json:"line"` // without the line ending
}

// SessionSnapshot describes the attached client
type SessionSnapshot struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	ConnectedAt time.Time `json:"connectedAt"`
	Keystrokes  uint64    `json:"keystrokes"`
}

// LogEntry represents a log message for TUI display
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// SummaryStats provides overall state for the status bar and the API
type SummaryStats struct {
	BusConnected   bool             `json:"busConnected"`
	BusChangedAt   time.Time        `json:"busChangedAt,omitempty"`
	Session        *SessionSnapshot `json:"session,omitempty"`
	PanelEvents    uint64           `json:"panelEvents"`
	ModuleEvents   uint64           `json:"moduleEvents"`
	Overflows      uint64           `json:"overflows"`
	Keystrokes     uint64           `json:"keystrokes"`
	SessionsOpened uint64           `json:"sessionsOpened"`
	LastLineAt     time.Time        `json:"lastLineAt,omitempty"`
	LastUpdated    time.Time        `json:"lastUpdated"`
}
