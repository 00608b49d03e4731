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
	"strings"
	"sync"
	"time"

	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

// DefaultMaxLines is how many bus lines the store keeps
const DefaultMaxLines = 500

// Store maintains the recent bus lines and bridge state for the TUI and
// the API
type Store struct {
	mu      sync.RWMutex
	lines   []LineEntry
	maxLine int
	summary SummaryStats
	filter  string

	// Log buffer
	logs       []LogEntry
	maxLogSize int
}

// NewStore creates a new state store
func NewStore(maxLines, maxLogSize int) *Store {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if maxLogSize <= 0 {
		maxLogSize = 1000
	}
	return &Store{
		lines:      make([]LineEntry, 0, maxLines),
		maxLine:    maxLines,
		logs:       make([]LogEntry, 0, maxLogSize),
		maxLogSize: maxLogSize,
	}
}

// Handle applies a bridge event. Subscribe it to the event bus.
func (s *Store) Handle(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.summary.LastUpdated = ts

	switch e.Type {
	case events.PanelEvent:
		s.summary.PanelEvents++
		s.addLine(e, ts, "panel")
	case events.ModuleEvent:
		s.summary.ModuleEvents++
		s.addLine(e, ts, "module")
	case events.BusConnectionChanged:
		s.summary.BusConnected = e.Connected
		s.summary.BusChangedAt = ts
		s.addLine(e, ts, "connection")
	case events.BufferOverflow:
		s.summary.Overflows++
		s.addLine(e, ts, "overflow")
	case events.SessionOpened:
		s.summary.SessionsOpened++
		s.summary.Session = &SessionSnapshot{
			ID:          e.SessionID,
			RemoteAddr:  e.RemoteAddr,
			ConnectedAt: ts,
		}
	case events.SessionClosed:
		if s.summary.Session != nil && s.summary.Session.ID == e.SessionID {
			s.summary.Session = nil
		}
	case events.KeystrokeInjected:
		s.summary.Keystrokes++
		if s.summary.Session != nil && s.summary.Session.ID == e.SessionID {
			s.summary.Session.Keystrokes++
		}
	case events.LogMessage:
		s.addLog(LogEntry{Timestamp: ts, Level: e.LogLevel.String(), Message: e.LogMessage})
	}
}

// addLine must be called with lock held
func (s *Store) addLine(e events.Event, ts time.Time, kind string) {
	s.lines = append(s.lines, LineEntry{
		Timestamp: ts,
		Elapsed:   e.Elapsed,
		Kind:      kind,
		Line:      strings.TrimRight(e.Line, "\r\n"),
	})
	if len(s.lines) > s.maxLine {
		s.lines = s.lines[len(s.lines)-s.maxLine:]
	}
	s.summary.LastLineAt = ts
}

// GetLines returns up to count recent lines matching the filter, oldest
// first. A count of zero or less returns all of them.
func (s *Store) GetLines(count int) []LineEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]LineEntry, 0, len(s.lines))
	for _, l := range s.lines {
		if s.filter == "" || strings.Contains(strings.ToLower(l.Line), s.filter) {
			matched = append(matched, l)
		}
	}
	if count > 0 && count < len(matched) {
		matched = matched[len(matched)-count:]
	}
	return matched
}

// LineCount returns how many lines are held
func (s *Store) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// GetSummary returns a copy of the overall state
func (s *Store) GetSummary() SummaryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := s.summary
	if s.summary.Session != nil {
		sess := *s.summary.Session
		sum.Session = &sess
	}
	return sum
}

// SetFilter sets the current filter text
func (s *Store) SetFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = strings.ToLower(filter)
}

// GetFilter returns the current filter text
func (s *Store) GetFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// AddLog adds a log entry to the buffer
func (s *Store) AddLog(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLog(entry)
}

func (s *Store) addLog(entry LogEntry) {
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.maxLogSize {
		s.logs = s.logs[len(s.logs)-s.maxLogSize:]
	}
}

// GetLogs returns recent log entries
func (s *Store) GetLogs(count int) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > len(s.logs) {
		count = len(s.logs)
	}

	result := make([]LogEntry, count)
	copy(result, s.logs[len(s.logs)-count:])
	return result
}
