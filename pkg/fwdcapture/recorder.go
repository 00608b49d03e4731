package fwdcapture

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

// Recorder writes the bus events it is handed to a capture. Subscribe
// Handle to the event bus.
type Recorder struct {
	mu     sync.Mutex
	w      *Writer
	frames uint64
	err    error
	closed bool
}

// NewRecorder records into w.
func NewRecorder(w *Writer) *Recorder {
	return &Recorder{w: w}
}

// CreateRecorder records into a new capture file at path.
func CreateRecorder(path string) (*Recorder, error) {
	w, err := Create(path)
	if err != nil {
		return nil, err
	}
	log.Infof("Recording bus events to %s (%s)", path, CompressionFor(path))
	return NewRecorder(w), nil
}

// Handle records ev if it is a bus event. The first write error stops
// recording and is reported by Close.
func (r *Recorder) Handle(ev events.Event) {
	kind, ok := busKind(ev.Type)
	if !ok {
		return
	}
	f, ok := FrameFrom(ev.Elapsed, fwdkeybus.Event{
		Kind:      kind,
		Binary:    ev.Binary,
		Command:   ev.Command,
		Message:   ev.Message,
		Connected: ev.Connected,
	})
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	if err := r.w.WriteFrame(f); err != nil {
		r.err = err
		log.Errorf("Recording stopped: %v", err)
		return
	}
	r.frames++
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes and closes the capture.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	r.closed = true
	if err := r.w.Close(); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

func busKind(t events.EventType) (fwdkeybus.EventKind, bool) {
	switch t {
	case events.PanelEvent:
		return fwdkeybus.PanelEvent, true
	case events.ModuleEvent:
		return fwdkeybus.ModuleEvent, true
	case events.BusConnectionChanged:
		return fwdkeybus.ConnectionChange, true
	case events.BufferOverflow:
		return fwdkeybus.Overflow, true
	default:
		return 0, false
	}
}
