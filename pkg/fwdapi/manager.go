package fwdapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
)

// Re-export interface types for external use
type (
	StateReader     = types.StateReader
	MetricsProvider = types.MetricsProvider
	EventStreamer   = types.EventStreamer
)

// DefaultAddr is where the API listens unless configured otherwise. It is
// loopback only; the telnet port is the only thing meant to face a network.
const DefaultAddr = "127.0.0.1:8080"

const shutdownTimeout = 5 * time.Second

// Config is the static part of the API manager
type Config struct {
	Addr    string
	Version string
	// Info is reported by /api/info; runtime fields are filled per request.
	Info types.InfoResponse
}

// Manager manages the API server lifecycle
type Manager struct {
	cfg       Config
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	ready    chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	doneChan chan struct{}

	stateReader     StateReader
	metricsProvider MetricsProvider
	eventStreamer   EventStreamer
}

// New creates a manager. Dependencies are set before Run.
func New(cfg Config) *Manager {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Manager{
		cfg:       cfg,
		startTime: time.Now(),
		ready:     make(chan struct{}),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// SetStateReader sets the state reader dependency
func (m *Manager) SetStateReader(reader StateReader) {
	m.stateReader = reader
}

// SetMetricsProvider sets the metrics provider dependency
func (m *Manager) SetMetricsProvider(provider MetricsProvider) {
	m.metricsProvider = provider
}

// SetEventStreamer sets the event streamer dependency
func (m *Manager) SetEventStreamer(streamer EventStreamer) {
	m.eventStreamer = streamer
}

// Handler returns the router without starting a listener
func (m *Manager) Handler() http.Handler {
	return m.setupRouter()
}

// Run serves the API until ctx is cancelled or Stop is called.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.doneChan)

	if m.stateReader == nil {
		return errors.New("state reader not configured")
	}

	InitLogBuffer()
	gin.SetMode(gin.ReleaseMode)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", m.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "unable to listen for API on %s", m.cfg.Addr)
	}

	server := &http.Server{
		Handler:     m.setupRouter(),
		ReadTimeout: 30 * time.Second,
		// streaming endpoints hold the response open
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	m.mu.Lock()
	m.server = server
	m.listener = ln
	m.mu.Unlock()
	close(m.ready)

	log.Infof("API listening on http://%s/api", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case <-m.stopChan:
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "API server failed")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}
	return nil
}

// Stop stops the API server
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// Ready closes once the listener is bound
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Addr returns the bound address, or the configured one before Run binds.
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.cfg.Addr
}

// Done returns a channel that closes when Run returns
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Uptime returns the server uptime
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// StartTime returns when the manager was created
func (m *Manager) StartTime() time.Time {
	return m.startTime
}

// Version returns the configured version
func (m *Manager) Version() string {
	return m.cfg.Version
}

// Info returns the static runtime description
func (m *Manager) Info() types.InfoResponse {
	return m.cfg.Info
}

var _ types.ManagerInfo = (*Manager)(nil)
