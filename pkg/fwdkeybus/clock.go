package fwdkeybus

import "time"

// Clock reports elapsed time since some fixed origin.
type Clock interface {
	Elapsed() time.Duration
}

// MonotonicClock measures elapsed time from its creation using the
// runtime's monotonic reading.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Elapsed returns the time since the clock was created.
func (c *MonotonicClock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// processClock is shared by everything that timestamps bus output so all
// lines agree on the origin.
var processClock = NewMonotonicClock()

// ProcessClock returns the process-wide clock.
func ProcessClock() Clock {
	return processClock
}
