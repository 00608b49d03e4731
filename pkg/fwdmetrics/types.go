package fwdmetrics

import (
	"sync/atomic"
	"time"
)

// BridgeMetrics counts everything that crosses the bridge. All counters are
// updated on the hot path with atomics; readers take a Snapshot.
type BridgeMetrics struct {
	bytesIn          uint64 // bytes received from the client
	bytesOut         uint64 // bytes written to the client
	linesOut         uint64 // lines written to the client
	panelEvents      uint64
	moduleEvents     uint64
	busChanges       uint64
	overflows        uint64
	keystrokes       uint64 // bytes forwarded to the decoder
	negotiation      uint64 // telnet negotiation bytes discarded
	sessionsAccepted uint64
	sessionsRejected uint64
	lastActivity     int64 // unix nano of last client traffic

	StartedAt time.Time

	rateCalc *RateCalculator
}

// NewBridgeMetrics creates an empty counter set.
func NewBridgeMetrics() *BridgeMetrics {
	return &BridgeMetrics{
		StartedAt: time.Now(),
		rateCalc:  NewRateCalculator(DefaultMaxSamples),
	}
}

func (m *BridgeMetrics) touch() {
	atomic.StoreInt64(&m.lastActivity, time.Now().UnixNano())
}

// AddBytesIn adds bytes read from the client
func (m *BridgeMetrics) AddBytesIn(n uint64) {
	atomic.AddUint64(&m.bytesIn, n)
	m.touch()
}

// AddBytesOut adds bytes written to the client
func (m *BridgeMetrics) AddBytesOut(n uint64) {
	atomic.AddUint64(&m.bytesOut, n)
	m.touch()
}

func (m *BridgeMetrics) IncLinesOut() { atomic.AddUint64(&m.linesOut, 1) }
func (m *BridgeMetrics) IncPanelEvents() { atomic.AddUint64(&m.panelEvents, 1) }
func (m *BridgeMetrics) IncModuleEvents() { atomic.AddUint64(&m.moduleEvents, 1) }
func (m *BridgeMetrics) IncBusChanges() { atomic.AddUint64(&m.busChanges, 1) }
func (m *BridgeMetrics) IncOverflows() { atomic.AddUint64(&m.overflows, 1) }
func (m *BridgeMetrics) IncKeystrokes() { atomic.AddUint64(&m.keystrokes, 1) }
func (m *BridgeMetrics) IncSessionAccepted() { atomic.AddUint64(&m.sessionsAccepted, 1) }
func (m *BridgeMetrics) IncSessionRejected() { atomic.AddUint64(&m.sessionsRejected, 1) }

// AddNegotiationBytes adds telnet negotiation bytes that were discarded
func (m *BridgeMetrics) AddNegotiationBytes(n uint64) {
	atomic.AddUint64(&m.negotiation, n)
}

// GetBytesIn returns the total bytes received from clients
func (m *BridgeMetrics) GetBytesIn() uint64 {
	return atomic.LoadUint64(&m.bytesIn)
}

// GetBytesOut returns the total bytes sent to clients
func (m *BridgeMetrics) GetBytesOut() uint64 {
	return atomic.LoadUint64(&m.bytesOut)
}

// GetLastActivity returns the time of the last client traffic
func (m *BridgeMetrics) GetLastActivity() time.Time {
	ns := atomic.LoadInt64(&m.lastActivity)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// RecordSample records current byte counters for rate calculation
func (m *BridgeMetrics) RecordSample() {
	m.rateCalc.AddSample(m.GetBytesIn(), m.GetBytesOut(), atomic.LoadUint64(&m.linesOut), time.Now())
}

// GetInstantRate returns the client byte rates and line rate per second
func (m *BridgeMetrics) GetInstantRate() (rateIn, rateOut, lineRate float64) {
	return m.rateCalc.GetInstantRate()
}

// GetHistory returns recent samples for graphing
func (m *BridgeMetrics) GetHistory(count int) []RateSample {
	return m.rateCalc.GetHistory(count)
}

// Snapshot is a consistent-enough copy of all counters for display.
type Snapshot struct {
	BytesIn          uint64    `json:"bytesIn"`
	BytesOut         uint64    `json:"bytesOut"`
	LinesOut         uint64    `json:"linesOut"`
	PanelEvents      uint64    `json:"panelEvents"`
	ModuleEvents     uint64    `json:"moduleEvents"`
	BusChanges       uint64    `json:"busChanges"`
	Overflows        uint64    `json:"overflows"`
	Keystrokes       uint64    `json:"keystrokes"`
	NegotiationBytes uint64    `json:"negotiationBytes"`
	SessionsAccepted uint64    `json:"sessionsAccepted"`
	SessionsRejected uint64    `json:"sessionsRejected"`
	RateIn           float64   `json:"rateIn"`
	RateOut          float64   `json:"rateOut"`
	LineRate         float64   `json:"lineRate"`
	LastActivity     time.Time `json:"lastActivity"`
	StartedAt        time.Time `json:"startedAt"`
}

// Snapshot copies the counters.
func (m *BridgeMetrics) Snapshot() Snapshot {
	rateIn, rateOut, lineRate := m.GetInstantRate()
	return Snapshot{
		BytesIn:          m.GetBytesIn(),
		BytesOut:         m.GetBytesOut(),
		LinesOut:         atomic.LoadUint64(&m.linesOut),
		PanelEvents:      atomic.LoadUint64(&m.panelEvents),
		ModuleEvents:     atomic.LoadUint64(&m.moduleEvents),
		BusChanges:       atomic.LoadUint64(&m.busChanges),
		Overflows:        atomic.LoadUint64(&m.overflows),
		Keystrokes:       atomic.LoadUint64(&m.keystrokes),
		NegotiationBytes: atomic.LoadUint64(&m.negotiation),
		SessionsAccepted: atomic.LoadUint64(&m.sessionsAccepted),
		SessionsRejected: atomic.LoadUint64(&m.sessionsRejected),
		RateIn:           rateIn,
		RateOut:          rateOut,
		LineRate:         lineRate,
		LastActivity:     m.GetLastActivity(),
		StartedAt:        m.StartedAt,
	}
}
