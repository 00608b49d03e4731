// Package fwdcapture records bus events to disk and replays them as a bus
// decoder.
//
// A capture is a CBOR sequence: one Header followed by Frames in the order
// the bus produced them. The file may be zstd or lz4 compressed; the
// extension decides which.
package fwdcapture

import (
	"time"

	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
)

// Magic identifies a capture stream.
const Magic = "keybusfwd-capture"

// Version is the current capture format version.
const Version = 1

// FrameKind says what a frame carries. Values are stored in captures and
// must not change.
type FrameKind uint8

const (
	FramePanel FrameKind = iota + 1
	FrameModule
	FrameBusConnected
	FrameBusDisconnected
	FrameOverflow
)

func (k FrameKind) String() string {
	switch k {
	case FramePanel:
		return "panel"
	case FrameModule:
		return "module"
	case FrameBusConnected:
		return "bus-connected"
	case FrameBusDisconnected:
		return "bus-disconnected"
	case FrameOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Header is the first record of every capture.
type Header struct {
	Magic   string `cbor:"magic"`
	Version int    `cbor:"version"`
	Created int64  `cbor:"created"` // unix milliseconds
}

// Frame is one decoded bus event at an offset from the start of the
// capture.
type Frame struct {
	Offset  time.Duration `cbor:"t"`
	Kind    FrameKind     `cbor:"k"`
	Binary  string        `cbor:"b,omitempty"`
	Command string        `cbor:"c,omitempty"`
	Message string        `cbor:"m,omitempty"`
}

// FrameFrom converts a bus event into a frame. The second result is false
// for events that have no frame representation.
func FrameFrom(offset time.Duration, ev fwdkeybus.Event) (Frame, bool) {
	f := Frame{Offset: offset}
	switch ev.Kind {
	case fwdkeybus.PanelEvent:
		f.Kind = FramePanel
		f.Binary, f.Command, f.Message = ev.Binary, ev.Command, ev.Message
	case fwdkeybus.ModuleEvent:
		f.Kind = FrameModule
		f.Binary, f.Message = ev.Binary, ev.Message
	case fwdkeybus.ConnectionChange:
		f.Kind = FrameBusDisconnected
		if ev.Connected {
			f.Kind = FrameBusConnected
		}
	case fwdkeybus.Overflow:
		f.Kind = FrameOverflow
	default:
		return Frame{}, false
	}
	return f, true
}
