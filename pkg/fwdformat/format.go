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

// Package fwdformat renders decoded bus events as the text lines sent to
// the telnet client.
package fwdformat

import (
	"fmt"
	"strings"
	"time"

	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
)

// LineEnding terminates every line written to the client.
const LineEnding = "\r\n"

// Fixed notices that carry no timestamp.
const (
	BusConnectedLine    = "Keybus connected" + LineEnding
	BusDisconnectedLine = "Keybus disconnected" + LineEnding
	OverflowLine        = "Keybus buffer overflow" + LineEnding
)

// Formatter stamps lines with the time elapsed on its clock.
type Formatter struct {
	clock fwdkeybus.Clock
}

// NewFormatter creates a formatter. A nil clock uses the process clock.
func NewFormatter(clock fwdkeybus.Clock) *Formatter {
	if clock == nil {
		clock = fwdkeybus.ProcessClock()
	}
	return &Formatter{clock: clock}
}

// Format renders ev as one complete line. The clock is read once per call.
func (f *Formatter) Format(ev fwdkeybus.Event) string {
	line, _ := f.Stamp(ev)
	return line
}

// Stamp renders ev like Format and also returns the elapsed time the line
// was stamped with. Connection and overflow notices carry no timestamp but
// still report when they were rendered.
func (f *Formatter) Stamp(ev fwdkeybus.Event) (string, time.Duration) {
	elapsed := f.clock.Elapsed()
	switch ev.Kind {
	case fwdkeybus.PanelEvent:
		return PanelLine(elapsed, ev.Binary, ev.Command, ev.Message), elapsed
	case fwdkeybus.ModuleEvent:
		return ModuleLine(elapsed, ev.Binary, ev.Message), elapsed
	case fwdkeybus.ConnectionChange:
		return ConnectionLine(ev.Connected), elapsed
	case fwdkeybus.Overflow:
		return OverflowLine, elapsed
	default:
		return "", elapsed
	}
}

// Timestamp renders elapsed seconds with two decimals, right aligned in an
// eight character field, followed by a colon.
func Timestamp(elapsed time.Duration) string {
	seconds := float64(elapsed.Milliseconds()) / 1000
	// width applies after rounding, so 9.999s is "   10.00:"
	return fmt.Sprintf("%8.2f:", seconds)
}

// PanelLine renders "<timestamp> <binary> [<command>] <message>\r\n".
func PanelLine(elapsed time.Duration, binary, command, message string) string {
	var sb strings.Builder
	sb.WriteString(Timestamp(elapsed))
	sb.WriteByte(' ')
	sb.WriteString(binary)
	sb.WriteString(" [")
	sb.WriteString(command)
	sb.WriteString("] ")
	sb.WriteString(message)
	sb.WriteString(LineEnding)
	return sb.String()
}

// ModuleLine renders "<timestamp> <binary> <message>\r\n".
func ModuleLine(elapsed time.Duration, binary, message string) string {
	return Timestamp(elapsed) + " " + binary + " " + message + LineEnding
}

// ConnectionLine renders a bus connection change.
func ConnectionLine(connected bool) string {
	if connected {
		return BusConnectedLine
	}
	return BusDisconnectedLine
}
