package fwdtui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T, width int) (*RootModel, *state.Store) {
	t.Helper()
	store := state.NewStore(50, 50)
	m := NewRootModel(ModelConfig{
		Version: "1.2.3",
		Listen:  ":2323",
		Source:  "panel.kbc",
		Store:   store,
	})
	m.Update(tea.WindowSizeMsg{Width: width, Height: 40})
	return m, store
}

func TestRootModel_HeaderAndEmptyView(t *testing.T) {
	m, _ := newTestModel(t, 120)
	view := m.View()

	for _, want := range []string{"keybusfwd", "v1.2.3", ":2323", "Waiting for bus data", "Bus: disconnected", "Client: waiting"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestRootModel_BusEventRefreshesLines(t *testing.T) {
	m, store := newTestModel(t, 120)

	e := events.Event{Type: events.PanelEvent, Timestamp: time.Now(), Line: "0:00:01.250 05: Status lights | Ready\r\n"}
	store.Handle(e)
	m.Update(BridgeEventMsg{Event: e})

	if !strings.Contains(m.View(), "Status lights | Ready") {
		t.Error("Expected bus line in view")
	}
}

func TestRootModel_StatusBarFollowsStore(t *testing.T) {
	m, store := newTestModel(t, 140)

	store.Handle(events.Event{Type: events.BusConnectionChanged, Connected: true, Line: "Keybus connected\r\n"})
	opened := events.NewSessionEvent(events.SessionOpened, "s1", "10.0.0.5:5000")
	store.Handle(opened)
	m.Update(BridgeEventMsg{Event: opened})

	view := m.View()
	if !strings.Contains(view, "Bus: connected") {
		t.Error("Expected bus connected in status bar")
	}
	if !strings.Contains(view, "10.0.0.5:5000") {
		t.Error("Expected client address in status bar")
	}
}

func TestRootModel_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"q", keyRune('q')},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"shutdown", ShutdownMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t, 100)
			_, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("Expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("Expected tea.QuitMsg")
			}
			if m.View() != "Shutting down...\n" {
				t.Errorf("Unexpected view %q", m.View())
			}
		})
	}
}

func TestRootModel_FilterCapturesKeys(t *testing.T) {
	m, store := newTestModel(t, 100)

	m.Update(keyRune('/'))
	m.Update(keyRune('q'))
	if m.quitting {
		t.Fatal("q while filtering must not quit")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if store.GetFilter() != "q" {
		t.Errorf("Expected filter 'q', got %q", store.GetFilter())
	}
}

func TestRootModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t, 100)

	m.Update(keyRune('?'))
	if !strings.Contains(m.View(), "telnet localhost 2323") {
		t.Error("Expected help view")
	}

	// q closes help instead of quitting
	m.Update(keyRune('q'))
	if m.quitting || m.help.IsVisible() {
		t.Error("Expected help closed and bridge running")
	}
}

func TestRootModel_TabCyclesFocus(t *testing.T) {
	m, _ := newTestModel(t, 100)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != FocusLogs {
		t.Errorf("Expected FocusLogs, got %d", m.focus)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != FocusLines {
		t.Errorf("Expected FocusLines, got %d", m.focus)
	}
}

func TestRootModel_CountersLayout(t *testing.T) {
	wide, _ := newTestModel(t, 120)
	if !wide.countersShown {
		t.Fatal("Expected counters on a wide terminal")
	}
	wide.Update(keyRune('c'))
	if wide.countersShown {
		t.Error("Expected c to hide counters")
	}

	narrow, _ := newTestModel(t, 60)
	if narrow.countersShown {
		t.Error("Expected counters hidden on a narrow terminal")
	}
}

func TestRootModel_MetricsUpdate(t *testing.T) {
	m, _ := newTestModel(t, 140)
	now := time.Now()
	m.history = func() []fwdmetrics.RateSample {
		return []fwdmetrics.RateSample{
			{Timestamp: now, Lines: 0},
			{Timestamp: now.Add(time.Second), Lines: 4},
			{Timestamp: now.Add(2 * time.Second), Lines: 10},
		}
	}

	m.Update(MetricsUpdateMsg{Snapshot: fwdmetrics.Snapshot{PanelEvents: 7, LineRate: 6}})

	view := m.View()
	if !strings.Contains(view, "Panel events") {
		t.Error("Expected counters table")
	}
	if !strings.Contains(view, "6.0 lines/s") {
		t.Error("Expected line rate in status bar")
	}
	if !strings.Contains(view, "lines/s ") {
		t.Error("Expected sparkline row")
	}
}

func TestRootModel_LogEntryAndShutdownEvent(t *testing.T) {
	m, _ := newTestModel(t, 120)

	m.Update(LogEntryMsg{Level: log.WarnLevel, Message: "capture ended", Time: time.Now()})
	if !strings.Contains(m.View(), "capture ended") {
		t.Error("Expected log entry in view")
	}

	m.Update(BridgeEventMsg{Event: events.Event{Type: events.ShutdownStarted}})
	if !strings.Contains(m.View(), "Shutting down") {
		t.Error("Expected shutdown notice in status bar")
	}
}

func TestNewRootModel_NilStore(t *testing.T) {
	m := NewRootModel(ModelConfig{})
	if m.store == nil {
		t.Fatal("Expected a fallback store")
	}
	if m.Init() == nil {
		t.Error("Expected init commands")
	}
}

func TestManager_ForwardsBusEvents(t *testing.T) {
	bus := events.NewBus(10)
	bus.Start()
	defer bus.Stop()

	store := state.NewStore(10, 10)
	bus.SubscribeAll(store.Handle)

	registry := fwdmetrics.NewRegistry()
	mgr := New(Config{Version: "dev", Listen: ":2323", Store: store, Bus: bus, Metrics: registry})
	defer mgr.release()

	bus.Publish(events.Event{Type: events.PanelEvent, Line: "line\r\n"})

	got := make(chan tea.Msg, 1)
	go func() { got <- ListenEvents(mgr.model.eventCh)() }()

	select {
	case msg := <-got:
		em, ok := msg.(BridgeEventMsg)
		if !ok || em.Event.Type != events.PanelEvent {
			t.Errorf("Unexpected msg %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Event not forwarded to the model")
	}

	if mgr.model.history == nil {
		t.Error("Expected history from the registry")
	}
}

func TestManager_SendLogAndStop(t *testing.T) {
	mgr := New(Config{})

	if !mgr.sendLog(time.Now(), log.InfoLevel, "hello") {
		t.Fatal("Expected log accepted")
	}
	entry := <-mgr.logCh
	if entry.Message != "hello" {
		t.Errorf("Got %q", entry.Message)
	}

	mgr.Stop()
	mgr.Stop()

	if mgr.sendLog(time.Now(), log.InfoLevel, "late") {
		t.Error("Expected log refused after Stop")
	}

	msg := ListenShutdown(mgr.stopChan)()
	if _, ok := msg.(ShutdownMsg); !ok {
		t.Errorf("Expected ShutdownMsg, got %#v", msg)
	}
}

func TestManager_SendLogDropsWhenFull(t *testing.T) {
	mgr := New(Config{})
	for i := 0; i < cap(mgr.logCh); i++ {
		mgr.sendLog(time.Now(), log.InfoLevel, "fill")
	}
	if mgr.sendLog(time.Now(), log.InfoLevel, "overflow") {
		t.Error("Expected full channel to refuse")
	}
}

func TestCommands(t *testing.T) {
	if ListenMetrics(nil) != nil {
		t.Error("Expected nil command for nil metrics channel")
	}

	ch := make(chan fwdmetrics.Snapshot, 1)
	ch <- fwdmetrics.Snapshot{LinesOut: 3}
	msg := ListenMetrics(ch)()
	if mu, ok := msg.(MetricsUpdateMsg); !ok || mu.Snapshot.LinesOut != 3 {
		t.Errorf("Unexpected %#v", msg)
	}
	close(ch)
	if ListenMetrics(ch)() != nil {
		t.Error("Expected nil on closed channel")
	}

	logCh := make(chan LogEntryMsg)
	close(logCh)
	if ListenLogs(logCh)() != nil {
		t.Error("Expected nil on closed log channel")
	}

	entry, ok := SendLog(log.ErrorLevel, "x")().(LogEntryMsg)
	if !ok || entry.Level != log.ErrorLevel || entry.Message != "x" {
		t.Errorf("Unexpected %#v", entry)
	}
}
