package fwdmetrics

import (
	"sync"
	"time"
)

// Registry owns the bridge counters and samples them once a second so
// rates can be derived.
type Registry struct {
	bridge  *BridgeMetrics
	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
	wg      sync.WaitGroup // tracks the sampling goroutine
}

var globalRegistry *Registry
var registryOnce sync.Once

// GetRegistry returns the singleton metrics registry
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// NewRegistry creates a registry that is not shared with the rest of the
// process. Tests use it to avoid the singleton.
func NewRegistry() *Registry {
	return &Registry{
		bridge: NewBridgeMetrics(),
		stopCh: make(chan struct{}),
	}
}

// Bridge returns the bridge counters
func (r *Registry) Bridge() *BridgeMetrics {
	return r.bridge
}

// Start begins the sampling ticker for rate calculation
func (r *Registry) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	ticker := time.NewTicker(1 * time.Second)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.bridge.RecordSample()
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down sampling and waits for the goroutine to exit
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.started = false
	r.mu.Unlock()

	r.wg.Wait()
}

// Subscribe delivers a snapshot every interval until cancel is called or
// the registry stops. Slow readers miss updates rather than block.
func (r *Registry) Subscribe(interval time.Duration) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	stopCh := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)

		for {
			select {
			case <-ticker.C:
				select {
				case ch <- r.bridge.Snapshot():
				default:
				}
			case <-stopCh:
				return
			case <-r.stopCh:
				return
			}
		}
	}()

	cancel := func() { once.Do(func() { close(stopCh) }) }
	return ch, cancel
}
