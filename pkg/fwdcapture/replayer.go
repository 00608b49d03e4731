package fwdcapture

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
)

// DefaultQueueSize is how many due frames the replayer holds before it
// reports an overflow.
const DefaultQueueSize = 32

// ReplayOptions configures a Replayer.
type ReplayOptions struct {
	fwdkeybus.Options

	QueueSize int
	Loop      bool            // restart from the first frame at the end
	Clock     fwdkeybus.Clock // nil uses a clock started by NewReplayer
	Keys      io.Writer       // optional sink for injected keystrokes
}

// Replayer plays a capture back as a bus decoder. Frames become due when
// the clock passes their offset. Due frames wait in a bounded queue that
// Poll drains one event at a time, so a loop that polls too slowly sees an
// overflow exactly like it would on a live bus.
//
// A Replayer is driven by a single goroutine.
type Replayer struct {
	frames []Frame
	next   int
	base   int64 // clock offset of the current pass, nanoseconds
	opts   ReplayOptions

	queue []Frame

	busChanged   bool
	busConnected bool
	overflow     bool
	panel        Frame
	module       *Frame

	dropped    atomic.Uint64
	keystrokes atomic.Uint64
	passes     atomic.Uint64
}

// NewReplayer creates a replayer over frames.
func NewReplayer(frames []Frame, opts ReplayOptions) *Replayer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Clock == nil {
		opts.Clock = fwdkeybus.NewMonotonicClock()
	}
	return &Replayer{
		frames: frames,
		opts:   opts,
		queue:  make([]Frame, 0, opts.QueueSize),
	}
}

// OpenReplayer loads the capture at path.
func OpenReplayer(path string, opts ReplayOptions) (*Replayer, error) {
	frames, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded %d frames from %s", len(frames), path)
	return NewReplayer(frames, opts), nil
}

// admit moves frames whose offset has passed into the queue.
func (r *Replayer) admit() {
	now := int64(r.opts.Clock.Elapsed())
	restarted := false

	for {
		if r.next >= len(r.frames) {
			if !r.opts.Loop || len(r.frames) == 0 || restarted {
				return
			}
			r.next = 0
			r.base = now
			restarted = true
			r.passes.Add(1)
		}

		f := r.frames[r.next]
		if r.base+int64(f.Offset) > now {
			return
		}
		r.next++

		if f.Kind == FrameModule && !r.opts.ProcessModuleData {
			continue
		}
		if len(r.queue) >= r.opts.QueueSize {
			r.overflow = true
			r.dropped.Add(1)
			continue
		}
		r.queue = append(r.queue, f)
	}
}

// Poll admits due frames and consumes queued frames up to the next panel,
// module or connection frame. It reports true when a panel event is ready.
func (r *Replayer) Poll() bool {
	r.admit()
	r.module = nil

	for len(r.queue) > 0 {
		f := r.queue[0]
		r.queue = r.queue[1:]

		switch f.Kind {
		case FrameOverflow:
			r.overflow = true
		case FrameBusConnected, FrameBusDisconnected:
			connected := f.Kind == FrameBusConnected
			if connected != r.busConnected {
				r.busConnected = connected
				r.busChanged = true
				return false
			}
		case FramePanel:
			r.panel = r.present(f)
			return true
		case FrameModule:
			m := r.present(f)
			if r.opts.HideDigits {
				m.Message = fwdkeybus.MaskDigits(m.Message)
			}
			r.module = &m
			return false
		}
	}
	return false
}

func (r *Replayer) present(f Frame) Frame {
	if !r.opts.DisplayTrailingBits {
		f.Binary = fwdkeybus.TrimTrailingBits(f.Binary)
	}
	return f
}

// TakeBusChange reports and clears a connection state change seen by Poll.
func (r *Replayer) TakeBusChange() (changed, connected bool) {
	changed = r.busChanged
	r.busChanged = false
	return changed, r.busConnected
}

// BusConnected reports the state set by the last connection frame.
func (r *Replayer) BusConnected() bool {
	return r.busConnected
}

// TakeOverflow reports and clears an overflow frame seen by Poll.
func (r *Replayer) TakeOverflow() bool {
	o := r.overflow
	r.overflow = false
	return o
}

// PanelBinary returns the bits of the last panel frame polled.
func (r *Replayer) PanelBinary() string { return r.panel.Binary }
// PanelCommand returns the command byte of the last panel frame.
func (r *Replayer) PanelCommand() string { return r.panel.Command }
// PanelMessage returns the decoded text of the last panel frame.
func (r *Replayer) PanelMessage() string { return r.panel.Message }
// HasModuleData reports whether the last frame polled was a module frame.
func (r *Replayer) HasModuleData() bool { return r.module != nil }

// ModuleBinary returns the bits of the last module frame, or "".
func (r *Replayer) ModuleBinary() string {
	if r.module == nil {
		return ""
	}
	return r.module.Binary
}

// ModuleMessage returns the decoded text of the last module frame, or "".
func (r *Replayer) ModuleMessage() string {
	if r.module == nil {
		return ""
	}
	return r.module.Message
}

// Write records a virtual keypad keystroke.
func (r *Replayer) Write(key byte) error {
	r.keystrokes.Add(1)
	log.Debugf("Virtual keypad: %q", key)
	if r.opts.Keys == nil {
		return nil
	}
	if _, err := r.opts.Keys.Write([]byte{key}); err != nil {
		return errors.Wrap(err, "write keystroke")
	}
	return nil
}

// Finished reports whether a non-looping replay has delivered every frame.
func (r *Replayer) Finished() bool {
	return !r.opts.Loop && r.next >= len(r.frames) && len(r.queue) == 0
}

// Dropped returns how many frames were lost to a full queue.
func (r *Replayer) Dropped() uint64 { return r.dropped.Load() }

// Keystrokes returns how many keystrokes were written.
func (r *Replayer) Keystrokes() uint64 { return r.keystrokes.Load() }

// Passes returns how many times a looping replay has restarted.
func (r *Replayer) Passes() uint64 { return r.passes.Load() }

var _ fwdkeybus.Decoder = (*Replayer)(nil)
