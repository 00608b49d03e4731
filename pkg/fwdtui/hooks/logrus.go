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

package hooks

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink receives one log entry and reports whether it was accepted. It must
// not block; the logger calling Fire holds its own lock.
type Sink func(t time.Time, level logrus.Level, message string) bool

// TUILogHook captures logrus entries and hands them to the TUI
type TUILogHook struct {
	sink    Sink
	levels  []logrus.Level
	dropped uint64
}

// NewTUILogHook creates a new TUI log hook
func NewTUILogHook(sink Sink) *TUILogHook {
	return &TUILogHook{
		sink:   sink,
		levels: logrus.AllLevels,
	}
}

// Levels returns the log levels this hook handles
func (h *TUILogHook) Levels() []logrus.Level {
	return h.levels
}

// Fire is called when a log entry is made
func (h *TUILogHook) Fire(entry *logrus.Entry) error {
	if !h.sink(entry.Time, entry.Level, entry.Message) {
		atomic.AddUint64(&h.dropped, 1)
	}
	return nil
}

// SetLevels sets which log levels this hook should capture
func (h *TUILogHook) SetLevels(levels []logrus.Level) {
	h.levels = levels
}

// Dropped returns how many entries the sink refused
func (h *TUILogHook) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
