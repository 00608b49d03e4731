package fwdmetrics

import (
	"sync"
	"time"
)

// DefaultMaxSamples is the default number of samples to keep in history
const DefaultMaxSamples = 60 // 60 seconds of history

// RateSample represents a point-in-time measurement
type RateSample struct {
	Timestamp time.Time `json:"timestamp"`
	BytesIn   uint64    `json:"bytesIn"`
	BytesOut  uint64    `json:"bytesOut"`
	Lines     uint64    `json:"lines"`
}

// RateCalculator maintains a rolling window of samples for rate calculation
type RateCalculator struct {
	samples      []RateSample
	maxSamples   int
	currentIndex int
	mu           sync.RWMutex
}

// NewRateCalculator creates a new rate calculator with the specified history size
func NewRateCalculator(maxSamples int) *RateCalculator {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &RateCalculator{
		samples:    make([]RateSample, 0, maxSamples),
		maxSamples: maxSamples,
	}
}

// AddSample records a new sample for rate calculation
func (rc *RateCalculator) AddSample(bytesIn, bytesOut, lines uint64, timestamp time.Time) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	sample := RateSample{
		Timestamp: timestamp,
		BytesIn:   bytesIn,
		BytesOut:  bytesOut,
		Lines:     lines,
	}

	if len(rc.samples) < rc.maxSamples {
		rc.samples = append(rc.samples, sample)
	} else {
		rc.samples[rc.currentIndex] = sample
	}
	rc.currentIndex = (rc.currentIndex + 1) % rc.maxSamples
}

// GetInstantRate returns per-second rates based on the last two samples
func (rc *RateCalculator) GetInstantRate() (rateIn, rateOut, lineRate float64) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if len(rc.samples) < 2 {
		return 0, 0, 0
	}

	curr := rc.samples[(rc.currentIndex-1+len(rc.samples))%len(rc.samples)]
	prev := rc.samples[(rc.currentIndex-2+len(rc.samples))%len(rc.samples)]

	duration := curr.Timestamp.Sub(prev.Timestamp).Seconds()
	if duration <= 0 {
		return 0, 0, 0
	}

	// counters only go backwards on reset
	if curr.BytesIn < prev.BytesIn || curr.BytesOut < prev.BytesOut || curr.Lines < prev.Lines {
		return 0, 0, 0
	}

	rateIn = float64(curr.BytesIn-prev.BytesIn) / duration
	rateOut = float64(curr.BytesOut-prev.BytesOut) / duration
	lineRate = float64(curr.Lines-prev.Lines) / duration
	return
}

// GetHistory returns recent samples for graphing (oldest first)
func (rc *RateCalculator) GetHistory(count int) []RateSample {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if count <= 0 || len(rc.samples) == 0 {
		return nil
	}
	if count > len(rc.samples) {
		count = len(rc.samples)
	}

	result := make([]RateSample, count)
	for i := 0; i < count; i++ {
		idx := (rc.currentIndex - count + i + len(rc.samples)) % len(rc.samples)
		result[i] = rc.samples[idx]
	}
	return result
}

// SampleCount returns the number of samples currently stored
func (rc *RateCalculator) SampleCount() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.samples)
}
