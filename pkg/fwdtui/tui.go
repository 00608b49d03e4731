package fwdtui

import (
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
	"github.com/txn2/keybusfwd/pkg/fwdtui/hooks"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// MetricsInterval is how often the counters table refreshes
const MetricsInterval = 500 * time.Millisecond

// Config wires the TUI to the running bridge. Store must already be
// subscribed to Bus so the model reads state the events describe.
type Config struct {
	Version         string
	Listen          string
	Source          string
	Store           *state.Store
	Bus             *events.Bus
	Metrics         *fwdmetrics.Registry
	TriggerShutdown func()
}

// Manager manages the TUI lifecycle
type Manager struct {
	program         *tea.Program
	model           *RootModel
	logCh           chan LogEntryMsg
	unsubscribe     events.UnsubscribeFunc
	metricsCancel   func()
	stopChan        chan struct{}
	stopOnce        sync.Once
	doneChan        chan struct{}
	originalOut     io.Writer
	triggerShutdown func()
}

// New creates the TUI manager and its root model. Nothing is drawn until Run.
func New(cfg Config) *Manager {
	eventCh := make(chan events.Event, 256)
	logCh := make(chan LogEntryMsg, 100)

	m := &Manager{
		logCh:           logCh,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
		triggerShutdown: cfg.TriggerShutdown,
	}

	if cfg.Bus != nil {
		m.unsubscribe = cfg.Bus.SubscribeAll(func(e events.Event) {
			select {
			case eventCh <- e:
			default:
				// model is behind; it rereads the store on the next event
			}
		})
	}

	var metricsCh <-chan fwdmetrics.Snapshot
	var history func() []fwdmetrics.RateSample
	if cfg.Metrics != nil {
		metricsCh, m.metricsCancel = cfg.Metrics.Subscribe(MetricsInterval)
		history = func() []fwdmetrics.RateSample {
			return cfg.Metrics.Bridge().GetHistory(fwdmetrics.DefaultMaxSamples)
		}
	}

	m.model = NewRootModel(ModelConfig{
		Version:         cfg.Version,
		Listen:          cfg.Listen,
		Source:          cfg.Source,
		Store:           cfg.Store,
		History:         history,
		EventCh:         eventCh,
		MetricsCh:       metricsCh,
		LogCh:           logCh,
		StopCh:          m.stopChan,
		TriggerShutdown: cfg.TriggerShutdown,
	})

	return m
}

// Model returns the root bubbletea model
func (m *Manager) Model() *RootModel {
	return m.model
}

// Run starts the TUI application and blocks until the user quits or Stop
// is called. Log output goes to the logs pane while it runs.
func (m *Manager) Run() error {
	if os.Getenv("TERM") == "" {
		_ = os.Setenv("TERM", "xterm-256color")
	}

	m.originalOut = log.StandardLogger().Out
	log.SetOutput(io.Discard)
	log.AddHook(hooks.NewTUILogHook(m.sendLog))

	m.program = tea.NewProgram(
		m.model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := m.program.Run()

	log.SetOutput(m.originalOut)

	if m.triggerShutdown != nil {
		m.triggerShutdown()
	}

	m.release()
	close(m.doneChan)

	return err
}

// sendLog is the log hook sink; it drops entries rather than block logging
func (m *Manager) sendLog(t time.Time, level log.Level, message string) bool {
	select {
	case <-m.stopChan:
		return false
	default:
	}
	select {
	case m.logCh <- LogEntryMsg{Level: level, Message: message, Time: t}:
		return true
	default:
		return false
	}
}

// Stop stops the TUI application
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.originalOut != nil {
			log.SetOutput(m.originalOut)
		}
		if m.program != nil {
			m.program.Quit()
		}
	})
}

func (m *Manager) release() {
	if m.metricsCancel != nil {
		m.metricsCancel()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Done returns a channel that closes when TUI is stopped
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}
