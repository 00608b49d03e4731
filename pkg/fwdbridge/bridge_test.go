package fwdbridge

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdsession"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

// frame is what the mock decoder reports for one Poll.
type frame struct {
	ready    bool
	panel    *fwdkeybus.Event
	module   *fwdkeybus.Event
	overflow bool
}

// mockDecoder replays scripted frames
type mockDecoder struct {
	mu        sync.Mutex
	frames    []frame
	polls     int
	changed   bool
	connected bool
	overflow  bool
	panel     fwdkeybus.Event
	module    *fwdkeybus.Event
	written   []byte
	writeErr  error
}

func (d *mockDecoder) push(f ...frame) {
	d.mu.Lock()
	d.frames = append(d.frames, f...)
	d.mu.Unlock()
}

func (d *mockDecoder) setBus(connected bool) {
	d.mu.Lock()
	d.changed = true
	d.connected = connected
	d.mu.Unlock()
}

func (d *mockDecoder) Poll() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	d.module = nil
	if len(d.frames) == 0 {
		return false
	}
	f := d.frames[0]
	d.frames = d.frames[1:]
	if f.panel != nil {
		d.panel = *f.panel
	}
	d.module = f.module
	if f.overflow {
		d.overflow = true
	}
	return f.ready
}

func (d *mockDecoder) TakeBusChange() (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := d.changed
	d.changed = false
	return changed, d.connected
}

func (d *mockDecoder) BusConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *mockDecoder) TakeOverflow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	o := d.overflow
	d.overflow = false
	return o
}

func (d *mockDecoder) PanelBinary() string { return d.panel.Binary }
func (d *mockDecoder) PanelCommand() string { return d.panel.Command }
func (d *mockDecoder) PanelMessage() string { return d.panel.Message }

func (d *mockDecoder) HasModuleData() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.module != nil
}

func (d *mockDecoder) ModuleBinary() string { return d.module.Binary }
func (d *mockDecoder) ModuleMessage() string { return d.module.Message }

func (d *mockDecoder) Write(key byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	d.written = append(d.written, key)
	return nil
}

func (d *mockDecoder) keys() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.written)
}

// recorder is a Publisher that keeps everything
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) bus() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type.IsBus() {
			out = append(out, e)
		}
	}
	return out
}

type fixedClock time.Duration

func (c fixedClock) Elapsed() time.Duration { return time.Duration(c) }

type harness struct {
	decoder  *mockDecoder
	sessions *fwdsession.Manager
	rec      *recorder
	metrics  *fwdmetrics.BridgeMetrics
	bridge   *Bridge
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sessions, err := fwdsession.Listen(context.Background(), "127.0.0.1:0", fwdsession.Options{})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Shutdown() })

	h := &harness{
		decoder:  &mockDecoder{},
		sessions: sessions,
		rec:      &recorder{},
		metrics:  fwdmetrics.NewBridgeMetrics(),
	}
	h.bridge = New(h.decoder, sessions, Config{
		Greeting:  "hi\r\n",
		Clock:     fixedClock(7 * time.Second),
		Publisher: h.rec,
		Metrics:   h.metrics,
		LogSettle: 10 * time.Millisecond,
	})
	return h
}

// stepUntil steps the bridge until cond holds
func (h *harness) stepUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.bridge.Step()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (h *harness) connect(t *testing.T) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", h.sessions.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	h.stepUntil(t, "client attached", h.bridge.ClientAttached)
	return &client{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *client) readLine(t *testing.T) string {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		t.Fatalf("Client read failed: %v", err)
	}
	return line
}

func panel(msg string) *fwdkeybus.Event {
	return &fwdkeybus.Event{Kind: fwdkeybus.PanelEvent, Binary: "00000101", Command: "0x05", Message: msg}
}

// TestPollWithoutClient tests that the decoder is polled every step even
// with nobody attached
func TestPollWithoutClient(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		h.bridge.Step()
	}
	if h.decoder.polls != 5 {
		t.Errorf("Expected 5 polls, got %d", h.decoder.polls)
	}
	if h.bridge.ClientAttached() {
		t.Error("Expected no client")
	}
}

// TestEventsWithoutClientArePublishedNotWritten tests that output is
// dropped without a client but observers still see it
func TestEventsWithoutClientArePublishedNotWritten(t *testing.T) {
	h := newHarness(t)
	h.decoder.setBus(true)
	h.decoder.push(frame{ready: true, panel: panel("Ready")})

	h.bridge.Step()

	if n := h.rec.count(events.PanelEvent); n != 1 {
		t.Errorf("Expected 1 published panel event, got %d", n)
	}
	if got := h.metrics.Snapshot().LinesOut; got != 0 {
		t.Errorf("Expected no lines written, got %d", got)
	}
}

// TestBusConnectedOnce tests that a false to true transition yields exactly
// one connection line and the flag ends cleared
func TestBusConnectedOnce(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	if line := c.readLine(t); line != "hi\r\n" {
		t.Fatalf("Expected greeting, got %q", line)
	}

	h.decoder.setBus(true)
	h.bridge.Step()
	h.bridge.Step()
	h.bridge.Step()

	if line := c.readLine(t); line != "Keybus connected\r\n" {
		t.Errorf("Expected connection line, got %q", line)
	}
	if n := h.rec.count(events.BusConnectionChanged); n != 1 {
		t.Errorf("Expected 1 connection event, got %d", n)
	}
	if changed, _ := h.decoder.TakeBusChange(); changed {
		t.Error("Expected bus change flag to be cleared")
	}
	if !h.bridge.BusConnected() {
		t.Error("Expected bridge to report bus connected")
	}
}

// TestOverflowReportedOnce tests that overflow is emitted once and cleared
func TestOverflowReportedOnce(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	c.readLine(t)

	h.decoder.mu.Lock()
	h.decoder.connected = true
	h.decoder.mu.Unlock()
	h.decoder.push(
		frame{ready: true, panel: panel("first"), overflow: true},
		frame{ready: true, panel: panel("second")},
	)

	h.bridge.Step()
	h.bridge.Step()

	want := []string{
		"Keybus buffer overflow\r\n",
		"    7.00: 00000101 [0x05] first\r\n",
		"    7.00: 00000101 [0x05] second\r\n",
	}
	for _, w := range want {
		if got := c.readLine(t); got != w {
			t.Errorf("Expected %q, got %q", w, got)
		}
	}
	if n := h.rec.count(events.BufferOverflow); n != 1 {
		t.Errorf("Expected 1 overflow event, got %d", n)
	}
	if h.decoder.TakeOverflow() {
		t.Error("Expected overflow flag to be cleared")
	}
}

// TestOutputOrder tests that events reach the client in decoder order
func TestOutputOrder(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	c.readLine(t)

	h.decoder.mu.Lock()
	h.decoder.connected = true
	h.decoder.mu.Unlock()

	module := &fwdkeybus.Event{Kind: fwdkeybus.ModuleEvent, Binary: "11", Message: "Zone 1"}
	h.decoder.push(
		frame{ready: true, panel: panel("a")},
		frame{ready: true, panel: panel("b"), module: module},
		frame{ready: false, module: module},
		frame{ready: true, panel: panel("c")},
	)
	for i := 0; i < 4; i++ {
		h.bridge.Step()
	}

	want := []string{
		"    7.00: 00000101 [0x05] a\r\n",
		"    7.00: 00000101 [0x05] b\r\n",
		"    7.00: 11 Zone 1\r\n",
		"    7.00: 11 Zone 1\r\n",
		"    7.00: 00000101 [0x05] c\r\n",
	}
	for _, w := range want {
		if got := c.readLine(t); got != w {
			t.Errorf("Expected %q, got %q", w, got)
		}
	}

	bus := h.rec.bus()
	if len(bus) != len(want) {
		t.Fatalf("Expected %d bus events, got %d", len(want), len(bus))
	}
	for i, e := range bus {
		if e.Line != want[i] {
			t.Errorf("Event %d: expected %q, got %q", i, want[i], e.Line)
		}
	}
	if got := h.metrics.Snapshot().LinesOut; got != uint64(len(want)) {
		t.Errorf("Expected %d lines out, got %d", len(want), got)
	}
}

// TestModuleIgnoredWhileBusDown tests that unsolicited module data needs a
// connected bus
func TestModuleIgnoredWhileBusDown(t *testing.T) {
	h := newHarness(t)
	module := &fwdkeybus.Event{Kind: fwdkeybus.ModuleEvent, Binary: "11", Message: "m"}
	h.decoder.push(frame{ready: false, module: module})

	h.bridge.Step()

	if n := h.rec.count(events.ModuleEvent); n != 0 {
		t.Errorf("Expected no module events, got %d", n)
	}
}

// TestNegotiationFiltered tests the fixed three byte rule on live input
func TestNegotiationFiltered(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	c.readLine(t)

	if _, err := c.conn.Write([]byte{0xFF, 0xFB, 0x31, 0x32}); err != nil {
		t.Fatalf("Client write failed: %v", err)
	}
	h.stepUntil(t, "keystroke", func() bool { return h.decoder.keys() == "2" })

	for i := 0; i < 5; i++ {
		h.bridge.Step()
	}
	if got := h.decoder.keys(); got != "2" {
		t.Errorf("Expected keystrokes %q, got %q", "2", got)
	}
	snap := h.metrics.Snapshot()
	if snap.Keystrokes != 1 {
		t.Errorf("Expected 1 keystroke, got %d", snap.Keystrokes)
	}
	if snap.NegotiationBytes != 3 {
		t.Errorf("Expected 3 negotiation bytes, got %d", snap.NegotiationBytes)
	}
	if n := h.rec.count(events.KeystrokeInjected); n != 1 {
		t.Errorf("Expected 1 keystroke event, got %d", n)
	}
}

// TestKeystrokesInOrder tests one byte per step, forwarded unchanged
func TestKeystrokesInOrder(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	c.readLine(t)

	_, _ = c.conn.Write([]byte("1234*#"))
	h.stepUntil(t, "keystrokes", func() bool { return h.decoder.keys() == "1234*#" })
}

func TestKeystrokeWriteError(t *testing.T) {
	h := newHarness(t)
	h.decoder.writeErr = errors.New("bus busy")
	c := h.connect(t)
	c.readLine(t)

	_, _ = c.conn.Write([]byte("9"))
	h.stepUntil(t, "steps", func() bool { return h.decoder.polls > 50 })
	if n := h.rec.count(events.KeystrokeInjected); n != 0 {
		t.Errorf("Expected no keystroke events, got %d", n)
	}
	if got := h.metrics.Snapshot().Keystrokes; got != 0 {
		t.Errorf("Expected no counted keystrokes, got %d", got)
	}
}

// TestDisconnectThenReaccept tests that a new client after a hangup is
// greeted again
func TestDisconnectThenReaccept(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	if line := c.readLine(t); line != "hi\r\n" {
		t.Fatalf("Expected greeting, got %q", line)
	}

	_ = c.conn.Close()
	h.stepUntil(t, "client detached", func() bool { return !h.bridge.ClientAttached() })
	if n := h.rec.count(events.SessionClosed); n != 1 {
		t.Errorf("Expected 1 session closed event, got %d", n)
	}

	c2 := h.connect(t)
	if line := c2.readLine(t); line != "hi\r\n" {
		t.Errorf("Expected greeting for new session, got %q", line)
	}
	if n := h.rec.count(events.SessionOpened); n != 2 {
		t.Errorf("Expected 2 session opened events, got %d", n)
	}
}

// TestSecondClientBusy tests the strict single session rule end to end
func TestSecondClientBusy(t *testing.T) {
	h := newHarness(t)
	c := h.connect(t)
	c.readLine(t)

	other, err := net.DialTimeout("tcp", h.sessions.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer func() { _ = other.Close() }()
	_ = other.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, _ := bufio.NewReader(other).ReadString('\n')
	if line != fwdsession.BusyLine {
		t.Errorf("Expected busy line, got %q", line)
	}

	h.bridge.Step()
	if n := h.rec.count(events.SessionOpened); n != 1 {
		t.Errorf("Expected only one session opened, got %d", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	for _, interval := range []time.Duration{0, time.Millisecond} {
		h := newHarness(t)
		h.bridge.pollInterval = interval

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.bridge.Run(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Run did not stop (interval %s)", interval)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	b := New(&mockDecoder{}, nil, Config{})
	if b.greeting != DefaultGreeting {
		t.Errorf("Expected default greeting, got %q", b.greeting)
	}
	if b.publisher != events.Discard {
		t.Error("Expected discard publisher")
	}
	if b.metrics == nil {
		t.Error("Expected metrics to be created")
	}
}
