package fwdapi

import (
	"sync"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// streamBuffer is the per-subscriber channel depth for streamed events.
const streamBuffer = 100

// StateReaderAdapter adapts state.Store to the StateReader interface
type StateReaderAdapter struct {
	getStore func() *state.Store
}

// NewStateReaderAdapter creates a new StateReaderAdapter
func NewStateReaderAdapter(getStore func() *state.Store) *StateReaderAdapter {
	return &StateReaderAdapter{getStore: getStore}
}

func (a *StateReaderAdapter) GetSummary() state.SummaryStats {
	if store := a.getStore(); store != nil {
		return store.GetSummary()
	}
	return state.SummaryStats{}
}

func (a *StateReaderAdapter) GetLines(count int) []state.LineEntry {
	if store := a.getStore(); store != nil {
		return store.GetLines(count)
	}
	return nil
}

func (a *StateReaderAdapter) GetLogs(count int) []state.LogEntry {
	if store := a.getStore(); store != nil {
		return store.GetLogs(count)
	}
	return nil
}

// MetricsProviderAdapter adapts fwdmetrics.Registry to the MetricsProvider interface
type MetricsProviderAdapter struct {
	registry *fwdmetrics.Registry
}

// NewMetricsProviderAdapter creates a new MetricsProviderAdapter
func NewMetricsProviderAdapter(registry *fwdmetrics.Registry) *MetricsProviderAdapter {
	return &MetricsProviderAdapter{registry: registry}
}

func (a *MetricsProviderAdapter) Snapshot() fwdmetrics.Snapshot {
	if a.registry != nil {
		return a.registry.Bridge().Snapshot()
	}
	return fwdmetrics.Snapshot{}
}

func (a *MetricsProviderAdapter) GetHistory(count int) []fwdmetrics.RateSample {
	if a.registry != nil {
		return a.registry.Bridge().GetHistory(count)
	}
	return nil
}

// EventStreamerAdapter adapts events.Bus to the EventStreamer interface.
// Each subscription gets its own buffered channel; events are dropped for
// a subscriber that falls behind rather than stalling the bus.
type EventStreamerAdapter struct {
	getEventBus func() *events.Bus
	mu          sync.Mutex
	active      int
}

// NewEventStreamerAdapter creates a new EventStreamerAdapter
func NewEventStreamerAdapter(getEventBus func() *events.Bus) *EventStreamerAdapter {
	return &EventStreamerAdapter{getEventBus: getEventBus}
}

func (a *EventStreamerAdapter) Subscribe() (<-chan events.Event, func()) {
	return a.subscribe(func(bus *events.Bus, h events.Handler) events.UnsubscribeFunc {
		return bus.SubscribeAll(h)
	})
}

func (a *EventStreamerAdapter) SubscribeType(eventType events.EventType) (<-chan events.Event, func()) {
	return a.subscribe(func(bus *events.Bus, h events.Handler) events.UnsubscribeFunc {
		return bus.Subscribe(eventType, h)
	})
}

// Subscribers returns the number of open subscriptions
func (a *EventStreamerAdapter) Subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *EventStreamerAdapter) subscribe(attach func(*events.Bus, events.Handler) events.UnsubscribeFunc) (<-chan events.Event, func()) {
	bus := a.getEventBus()
	if bus == nil {
		ch := make(chan events.Event)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan events.Event, streamBuffer)
	unsubscribe := attach(bus, func(e events.Event) {
		select {
		case ch <- e:
		default:
		}
	})

	a.mu.Lock()
	a.active++
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// the bus holds its lock while dispatching, so once
			// unsubscribe returns no handler can still send on ch
			unsubscribe()
			close(ch)

			a.mu.Lock()
			a.active--
			a.mu.Unlock()
		})
	}
	return ch, cancel
}

var (
	_ types.StateReader     = (*StateReaderAdapter)(nil)
	_ types.MetricsProvider = (*MetricsProviderAdapter)(nil)
	_ types.EventStreamer   = (*EventStreamerAdapter)(nil)
)
