package fwdkeybus

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Idle is a Decoder with no bus attached. It never produces events and
// only counts the keystrokes written to it, which is enough to exercise a
// client connection without hardware.
type Idle struct {
	keystrokes atomic.Uint64
}

var _ Decoder = (*Idle)(nil)

func (d *Idle) Poll() bool { return false }
func (d *Idle) TakeBusChange() (bool, bool) { return false, false }
func (d *Idle) BusConnected() bool { return false }
func (d *Idle) TakeOverflow() bool { return false }
func (d *Idle) PanelBinary() string { return "" }
func (d *Idle) PanelCommand() string { return "" }
func (d *Idle) PanelMessage() string { return "" }
func (d *Idle) HasModuleData() bool { return false }
func (d *Idle) ModuleBinary() string { return "" }
func (d *Idle) ModuleMessage() string { return "" }

// Write discards the keystroke.
func (d *Idle) Write(key byte) error {
	d.keystrokes.Add(1)
	log.Debugf("Idle decoder dropped keystroke %q", key)
	return nil
}

// Keystrokes returns how many keystrokes were written.
func (d *Idle) Keystrokes() uint64 {
	return d.keystrokes.Load()
}
