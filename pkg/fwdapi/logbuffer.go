package fwdapi

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
)

// DefaultLogBufferSize is the number of entries the global buffer keeps.
const DefaultLogBufferSize = 1000

// upper bound on a single allocation
const maxLogBufferSize = 10000

func boundedSize(size, limit int) int {
	if size <= 0 {
		return 0
	}
	if size > limit {
		return limit
	}
	return size
}

// LogBuffer is a fixed size ring of log entries. It implements
// types.LogBufferProvider.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []types.LogBufferEntry
	head    int
	count   int
}

// NewLogBuffer creates a buffer holding at most size entries.
func NewLogBuffer(size int) *LogBuffer {
	size = boundedSize(size, maxLogBufferSize)
	if size == 0 {
		size = DefaultLogBufferSize
	}
	return &LogBuffer{entries: make([]types.LogBufferEntry, size)}
}

// Add appends an entry, overwriting the oldest one when full.
func (b *LogBuffer) Add(entry types.LogBufferEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// GetLast returns up to n entries, most recent first.
func (b *LogBuffer) GetLast(n int) []types.LogBufferEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n = boundedSize(n, b.count)
	if n == 0 {
		return nil
	}

	size := len(b.entries)
	result := make([]types.LogBufferEntry, n)
	for i := 0; i < n; i++ {
		result[i] = b.entries[(b.head-1-i+size)%size]
	}
	return result
}

// Count returns the number of buffered entries.
func (b *LogBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Clear drops every entry.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

var _ types.LogBufferProvider = (*LogBuffer)(nil)

// LogBufferHook is a logrus hook feeding a LogBuffer
type LogBufferHook struct {
	buffer *LogBuffer
	levels []log.Level
}

// NewLogBufferHook creates a hook for the given levels, all levels when nil.
func NewLogBufferHook(buffer *LogBuffer, levels []log.Level) *LogBufferHook {
	if levels == nil {
		levels = log.AllLevels
	}
	return &LogBufferHook{
		buffer: buffer,
		levels: levels,
	}
}

// Levels implements log.Hook
func (h *LogBufferHook) Levels() []log.Level {
	return h.levels
}

// Fire implements log.Hook. Field values are rendered with fmt so session
// ids, byte counts and errors all survive into the buffer.
func (h *LogBufferHook) Fire(entry *log.Entry) error {
	var fields map[string]string
	if len(entry.Data) > 0 {
		fields = make(map[string]string, len(entry.Data))
		for k, v := range entry.Data {
			fields[k] = fmt.Sprint(v)
		}
	}

	h.buffer.Add(types.LogBufferEntry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Fields:    fields,
	})
	return nil
}

var (
	globalLogBuffer *LogBuffer
	logBufferMu     sync.Mutex
	logHookAdded    bool
)

// GetLogBuffer returns the process wide log buffer, creating it on first use.
func GetLogBuffer() *LogBuffer {
	logBufferMu.Lock()
	defer logBufferMu.Unlock()

	if globalLogBuffer == nil {
		globalLogBuffer = NewLogBuffer(DefaultLogBufferSize)
	}
	return globalLogBuffer
}

// GetLogBufferProvider returns GetLogBuffer as the handler-facing interface.
func GetLogBufferProvider() types.LogBufferProvider {
	return GetLogBuffer()
}

// InitLogBuffer attaches the global buffer to logrus. Repeated calls add
// the hook only once.
func InitLogBuffer() {
	buffer := GetLogBuffer()

	logBufferMu.Lock()
	defer logBufferMu.Unlock()
	if logHookAdded {
		return
	}
	log.AddHook(NewLogBufferHook(buffer, log.AllLevels))
	logHookAdded = true
}
