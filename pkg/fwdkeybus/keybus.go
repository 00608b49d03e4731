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

// Package fwdkeybus defines the contract between the bridge and a Keybus
// decoder. The decoder itself (bit timing, byte framing, message decoding)
// lives outside this module; the bridge only consumes the interface below.
package fwdkeybus

import (
	"strings"
)

// Decoder is a decoded Keybus source.
//
// Poll must never block. The bus-change and overflow conditions are
// edge-triggered: TakeBusChange and TakeOverflow report the condition once
// and clear it in the same call.
type Decoder interface {
	// Poll processes pending bus data and returns true when a new panel
	// message is ready to be read through the Panel accessors.
	Poll() bool

	// TakeBusChange reports whether the bus connection state changed since
	// the last call, together with the current state.
	TakeBusChange() (changed, connected bool)

	// BusConnected is the level-triggered bus connection state.
	BusConnected() bool

	// TakeOverflow reports whether the decoder dropped data since the last call.
	TakeOverflow() bool

	PanelBinary() string
	PanelCommand() string
	PanelMessage() string

	HasModuleData() bool
	ModuleBinary() string
	ModuleMessage() string

	// Write injects a single virtual keypad keystroke onto the bus.
	Write(key byte) error
}

// Options are handed to decoder implementations unmodified; the bridge
// itself never looks at them.
type Options struct {
	ProcessModuleData   bool `yaml:"processModuleData"`
	HideDigits          bool `yaml:"hideDigits"`
	DisplayTrailingBits bool `yaml:"displayTrailingBits"`
}

// EventKind tags an Event.
type EventKind int

const (
	PanelEvent EventKind = iota
	ModuleEvent
	ConnectionChange
	Overflow
)

// String returns a string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case PanelEvent:
		return "panel"
	case ModuleEvent:
		return "module"
	case ConnectionChange:
		return "connection"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Event is a single decoded bus occurrence. Which fields are meaningful
// depends on Kind: panel events carry Binary, Command and Message, module
// events carry Binary and Message, connection changes carry Connected and
// overflows carry nothing.
type Event struct {
	Kind      EventKind
	Binary    string
	Command   string
	Message   string
	Connected bool
}

// PanelFrom reads the current panel message out of a decoder.
func PanelFrom(d Decoder) Event {
	return Event{
		Kind:    PanelEvent,
		Binary:  d.PanelBinary(),
		Command: d.PanelCommand(),
		Message: d.PanelMessage(),
	}
}

// ModuleFrom reads the current module message out of a decoder.
func ModuleFrom(d Decoder) Event {
	return Event{
		Kind:    ModuleEvent,
		Binary:  d.ModuleBinary(),
		Message: d.ModuleMessage(),
	}
}

// MaskDigits replaces every decimal digit in s with '*'. Decoders use it to
// keep keypad access codes out of the printed stream.
func MaskDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '*'
		}
		return r
	}, s)
}

// TrimTrailingBits drops a final bit group shorter than a full byte from a
// space separated binary rendering such as "01011010 1100 1".
func TrimTrailingBits(binary string) string {
	fields := strings.Fields(binary)
	for len(fields) > 1 && len(fields[len(fields)-1]) < 8 {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
