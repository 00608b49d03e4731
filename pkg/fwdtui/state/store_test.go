package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore(0, 0)
	if s.maxLine != DefaultMaxLines {
		t.Errorf("Expected maxLine %d, got %d", DefaultMaxLines, s.maxLine)
	}
	if s.maxLogSize != 1000 {
		t.Errorf("Expected maxLogSize 1000, got %d", s.maxLogSize)
	}
}

// TestHandleBusEvents tests that bus events become lines and counters
func TestHandleBusEvents(t *testing.T) {
	s := NewStore(10, 10)

	s.Handle(events.Event{Type: events.BusConnectionChanged, Connected: true, Line: "Keybus connected\r\n"})
	s.Handle(events.Event{Type: events.PanelEvent, Line: "    7.00: 00000101 [0x05] Ready\r\n", Elapsed: 7 * time.Second})
	s.Handle(events.Event{Type: events.ModuleEvent, Line: "    7.10: 11111111 Zone 1\r\n"})
	s.Handle(events.Event{Type: events.BufferOverflow, Line: "Keybus buffer overflow\r\n"})

	lines := s.GetLines(0)
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}
	if lines[1].Line != "    7.00: 00000101 [0x05] Ready" {
		t.Errorf("Expected line ending trimmed, got %q", lines[1].Line)
	}
	if lines[1].Kind != "panel" || lines[1].Elapsed != 7*time.Second {
		t.Errorf("Unexpected entry %+v", lines[1])
	}

	sum := s.GetSummary()
	if !sum.BusConnected {
		t.Error("Expected bus connected")
	}
	if sum.PanelEvents != 1 || sum.ModuleEvents != 1 || sum.Overflows != 1 {
		t.Errorf("Unexpected counters %+v", sum)
	}
	if sum.LastLineAt.IsZero() {
		t.Error("Expected LastLineAt to be set")
	}
}

func TestLineRingBuffer(t *testing.T) {
	s := NewStore(3, 10)
	for i := 0; i < 5; i++ {
		s.Handle(events.Event{Type: events.PanelEvent, Line: fmt.Sprintf("line %d\r\n", i)})
	}

	if s.LineCount() != 3 {
		t.Fatalf("Expected 3 lines, got %d", s.LineCount())
	}
	lines := s.GetLines(0)
	if lines[0].Line != "line 2" || lines[2].Line != "line 4" {
		t.Errorf("Expected oldest-first lines 2..4, got %v", lines)
	}

	last := s.GetLines(1)
	if len(last) != 1 || last[0].Line != "line 4" {
		t.Errorf("Expected only the newest line, got %v", last)
	}
}

func TestLineFilter(t *testing.T) {
	s := NewStore(10, 10)
	s.Handle(events.Event{Type: events.PanelEvent, Line: "Zone 1 open\r\n"})
	s.Handle(events.Event{Type: events.PanelEvent, Line: "Ready\r\n"})

	s.SetFilter("ZONE")
	if s.GetFilter() != "zone" {
		t.Errorf("Expected lowercased filter, got %q", s.GetFilter())
	}
	lines := s.GetLines(0)
	if len(lines) != 1 || lines[0].Line != "Zone 1 open" {
		t.Errorf("Expected only the zone line, got %v", lines)
	}

	s.SetFilter("")
	if len(s.GetLines(0)) != 2 {
		t.Error("Expected all lines with empty filter")
	}
}

// TestSessionLifecycle tests session tracking and keystroke attribution
func TestSessionLifecycle(t *testing.T) {
	s := NewStore(10, 10)

	s.Handle(events.NewSessionEvent(events.SessionOpened, "a", "10.0.0.1:4000"))
	s.Handle(events.NewKeystrokeEvent("a", '1'))
	s.Handle(events.NewKeystrokeEvent("a", '2'))

	sum := s.GetSummary()
	if sum.Session == nil {
		t.Fatal("Expected a session")
	}
	if sum.Session.RemoteAddr != "10.0.0.1:4000" || sum.Session.Keystrokes != 2 {
		t.Errorf("Unexpected session %+v", sum.Session)
	}

	// returned snapshot is a copy
	sum.Session.Keystrokes = 100
	if s.GetSummary().Session.Keystrokes != 2 {
		t.Error("Expected summary session to be copied")
	}

	// a close for another session is ignored
	s.Handle(events.NewSessionEvent(events.SessionClosed, "b", ""))
	if s.GetSummary().Session == nil {
		t.Error("Expected session to survive unrelated close")
	}

	s.Handle(events.NewSessionEvent(events.SessionClosed, "a", "10.0.0.1:4000"))
	sum = s.GetSummary()
	if sum.Session != nil {
		t.Error("Expected no session after close")
	}
	if sum.SessionsOpened != 1 || sum.Keystrokes != 2 {
		t.Errorf("Unexpected totals %+v", sum)
	}
}

func TestLogs(t *testing.T) {
	s := NewStore(10, 3)

	s.Handle(events.NewLogEvent(logrus.InfoLevel, "one", nil))
	for _, m := range []string{"two", "three", "four"} {
		s.AddLog(LogEntry{Timestamp: time.Now(), Level: "info", Message: m})
	}

	logs := s.GetLogs(0)
	if len(logs) != 3 {
		t.Fatalf("Expected 3 logs, got %d", len(logs))
	}
	if logs[0].Message != "two" || logs[2].Message != "four" {
		t.Errorf("Unexpected logs %v", logs)
	}

	recent := s.GetLogs(1)
	if len(recent) != 1 || recent[0].Message != "four" {
		t.Errorf("Expected newest log, got %v", recent)
	}
}
