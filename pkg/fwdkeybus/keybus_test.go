package fwdkeybus

import (
	"testing"
	"time"
)

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind     EventKind
		expected string
	}{
		{PanelEvent, "panel"},
		{ModuleEvent, "module"},
		{ConnectionChange, "connection"},
		{Overflow, "overflow"},
		{EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

func TestMaskDigits(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"[Keypad] 1", "[Keypad] *"},
		{"Access code 1234 entered", "Access code **** entered"},
		{"no digits", "no digits"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskDigits(tt.in); got != tt.expected {
			t.Errorf("MaskDigits(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestTrimTrailingBits(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"00000101 10000001 1", "00000101 10000001"},
		{"00000101 10000001 1 01", "00000101 10000001"},
		{"00000101 10000001", "00000101 10000001"},
		{"101", "101"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TrimTrailingBits(tt.in); got != tt.expected {
			t.Errorf("TrimTrailingBits(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

type fakeDecoder struct {
	Idle
}

func (d *fakeDecoder) PanelBinary() string { return "00000101" }
func (d *fakeDecoder) PanelCommand() string { return "0x05" }
func (d *fakeDecoder) PanelMessage() string { return "Status lights: Ready" }
func (d *fakeDecoder) ModuleBinary() string { return "11111111" }
func (d *fakeDecoder) ModuleMessage() string { return "[Keypad] 1" }

func TestPanelAndModuleFrom(t *testing.T) {
	d := &fakeDecoder{}

	panel := PanelFrom(d)
	if panel.Kind != PanelEvent || panel.Command != "0x05" || panel.Binary != "00000101" {
		t.Errorf("Unexpected panel event: %+v", panel)
	}

	module := ModuleFrom(d)
	if module.Kind != ModuleEvent || module.Message != "[Keypad] 1" || module.Command != "" {
		t.Errorf("Unexpected module event: %+v", module)
	}
}

func TestIdleDecoder(t *testing.T) {
	d := &Idle{}
	if d.Poll() {
		t.Error("Idle decoder should never report data")
	}
	if changed, _ := d.TakeBusChange(); changed {
		t.Error("Idle decoder should never report a bus change")
	}
	_ = d.Write('1')
	_ = d.Write('#')
	if d.Keystrokes() != 2 {
		t.Errorf("Expected 2 keystrokes, got %d", d.Keystrokes())
	}
}

func TestMonotonicClock(t *testing.T) {
	c := NewMonotonicClock()
	first := c.Elapsed()
	time.Sleep(2 * time.Millisecond)
	if c.Elapsed() <= first {
		t.Error("Expected clock to advance")
	}
	if ProcessClock() == nil {
		t.Error("Expected process clock")
	}
}
