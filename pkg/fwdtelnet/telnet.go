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

// Package fwdtelnet separates telnet negotiation from keystroke payload on
// the inbound client stream.
//
// The filter does not parse telnet options. Any IAC byte starts a fixed
// three byte sequence (IAC, command, option) that is consumed and dropped,
// which is all a well behaved client sends when it first connects.
package fwdtelnet

import (
	"io"
)

// Telnet protocol command bytes.
const (
	IAC  = 0xFF
	DONT = 0xFE
	DO   = 0xFD
	WONT = 0xFC
	WILL = 0xFB
)

// SequenceLength is the number of bytes dropped for every IAC seen.
const SequenceLength = 3

// Source is the inbound byte stream the filter reads from. Len reports how
// many bytes can be read without blocking.
type Source interface {
	Len() int
	ReadByte() (byte, error)
}

// Action describes what a call to Next did.
type Action int

const (
	// Nothing was available to read.
	None Action = iota
	// Payload means the returned byte is a keystroke.
	Payload
	// Negotiation means bytes were consumed and discarded.
	Negotiation
)

// Filter consumes at most one unit of input per call: either a single
// payload byte or (part of) one negotiation sequence.
//
// When a sequence is split across reads the bytes still owed are remembered
// and discarded as they arrive, so a slow client cannot leak option bytes
// into the keystroke stream.
type Filter struct {
	owed    int
	dropped uint64
}

// Next reads from src and reports what it found. The byte is only
// meaningful when the action is Payload.
func (f *Filter) Next(src Source) (byte, Action) {
	if src.Len() == 0 {
		return 0, None
	}

	if f.owed > 0 {
		f.discard(src)
		return 0, Negotiation
	}

	b, err := src.ReadByte()
	if err != nil {
		return 0, None
	}

	if b != IAC {
		return b, Payload
	}

	f.dropped++
	f.owed = SequenceLength - 1
	f.discard(src)
	return 0, Negotiation
}

// discard drops owed bytes that are already available.
func (f *Filter) discard(src Source) {
	for f.owed > 0 && src.Len() > 0 {
		if _, err := src.ReadByte(); err != nil {
			return
		}
		f.owed--
		f.dropped++
	}
}

// Pending reports whether a negotiation sequence is still incomplete.
func (f *Filter) Pending() bool {
	return f.owed > 0
}

// Dropped returns the number of negotiation bytes discarded so far.
func (f *Filter) Dropped() uint64 {
	return f.dropped
}

// Reset forgets any partially consumed sequence. Call it when the session
// that fed the filter goes away.
func (f *Filter) Reset() {
	f.owed = 0
}

// Keystrokes runs the filter over a complete buffer and returns the
// payload bytes it contains, in order.
func Keystrokes(p []byte) []byte {
	var f Filter
	src := &sliceSource{buf: p}
	out := make([]byte, 0, len(p))
	for src.Len() > 0 {
		if b, action := f.Next(src); action == Payload {
			out = append(out, b)
		}
	}
	return out
}

type sliceSource struct {
	buf []byte
}

func (s *sliceSource) Len() int {
	return len(s.buf)
}

func (s *sliceSource) ReadByte() (byte, error) {
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}
