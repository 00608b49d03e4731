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

// Package fwdbridge is the scheduler that ties the bus decoder to the
// client session.
//
// Each Step polls the decoder first and unconditionally, then services the
// client: greeting, one unit of inbound input, and any decoded output. No
// call made by Step blocks, so the bus is never starved by a slow client.
package fwdbridge

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdformat"
	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdsession"
	"github.com/txn2/keybusfwd/pkg/fwdtelnet"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

// DefaultGreeting is sent once to every new client.
const DefaultGreeting = "Keybus bridge ready, keystrokes are sent to the panel." + fwdformat.LineEnding

// DefaultPollInterval is the pause between loop iterations in Run.
const DefaultPollInterval = time.Millisecond

// DefaultLogSettle is how long bus connection state must hold before it is
// logged.
const DefaultLogSettle = 2 * time.Second

// Sessions is the part of the session manager the loop uses.
type Sessions interface {
	Accept() *fwdsession.Session
	IsConnected(*fwdsession.Session) bool
	Close(*fwdsession.Session)
}

// Config holds the optional collaborators of a Bridge. Zero values select
// defaults.
type Config struct {
	Greeting     string
	PollInterval time.Duration // 0 yields with runtime.Gosched between steps
	LogSettle    time.Duration
	Clock        fwdkeybus.Clock
	Publisher    events.Publisher
	Metrics      *fwdmetrics.BridgeMetrics
}

// Bridge owns the loop state. It is not safe for concurrent use; only the
// goroutine running Step or Run may touch it. The status accessors are safe
// from anywhere.
type Bridge struct {
	decoder   fwdkeybus.Decoder
	sessions  Sessions
	formatter *fwdformat.Formatter
	filter    fwdtelnet.Filter
	session   *fwdsession.Session

	greeting     string
	pollInterval time.Duration
	publisher    events.Publisher
	metrics      *fwdmetrics.BridgeMetrics
	settle       func(func())

	busConnected atomic.Bool
	attached     atomic.Bool
}

// New creates a bridge between decoder and sessions.
func New(decoder fwdkeybus.Decoder, sessions Sessions, cfg Config) *Bridge {
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.LogSettle == 0 {
		cfg.LogSettle = DefaultLogSettle
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Discard
	}
	if cfg.Metrics == nil {
		cfg.Metrics = fwdmetrics.NewBridgeMetrics()
	}

	return &Bridge{
		decoder:      decoder,
		sessions:     sessions,
		formatter:    fwdformat.NewFormatter(cfg.Clock),
		greeting:     cfg.Greeting,
		pollInterval: cfg.PollInterval,
		publisher:    cfg.Publisher,
		metrics:      cfg.Metrics,
		settle:       debounce.New(cfg.LogSettle),
	}
}

// Step runs one non-blocking iteration of the loop.
func (b *Bridge) Step() {
	ready := b.decoder.Poll()

	if changed, connected := b.decoder.TakeBusChange(); changed {
		b.busChanged(connected)
	}

	if b.session == nil {
		if s := b.sessions.Accept(); s != nil {
			b.open(s)
		}
	}

	if b.session != nil && !b.sessions.IsConnected(b.session) {
		b.teardown()
	}

	if b.session != nil {
		b.serviceClient()
	}

	if ready {
		if b.decoder.TakeOverflow() {
			b.emit(fwdkeybus.Event{Kind: fwdkeybus.Overflow})
		}
		if b.decoder.BusConnected() {
			b.emit(fwdkeybus.PanelFrom(b.decoder))
		}
		if b.decoder.HasModuleData() {
			b.emit(fwdkeybus.ModuleFrom(b.decoder))
		}
	} else if b.decoder.BusConnected() && b.decoder.HasModuleData() {
		b.emit(fwdkeybus.ModuleFrom(b.decoder))
	}
}

// Run repeats Step until ctx is cancelled, then closes any session.
func (b *Bridge) Run(ctx context.Context) error {
	log.Infof("Bridge loop started (poll interval %s)", b.pollInterval)
	defer func() {
		if b.session != nil {
			b.teardown()
		}
		log.Info("Bridge loop stopped")
	}()

	var ticker *time.Ticker
	if b.pollInterval > 0 {
		ticker = time.NewTicker(b.pollInterval)
		defer ticker.Stop()
	}

	for {
		b.Step()

		if ticker == nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				runtime.Gosched()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// BusConnected reports the last bus state the loop saw.
func (b *Bridge) BusConnected() bool {
	return b.busConnected.Load()
}

// ClientAttached reports whether a client session is open.
func (b *Bridge) ClientAttached() bool {
	return b.attached.Load()
}

func (b *Bridge) busChanged(connected bool) {
	b.busConnected.Store(connected)
	b.metrics.IncBusChanges()
	b.emit(fwdkeybus.Event{Kind: fwdkeybus.ConnectionChange, Connected: connected})

	b.settle(func() {
		if connected {
			log.Info("Keybus connected")
		} else {
			log.Warn("Keybus disconnected")
		}
	})
}

func (b *Bridge) open(s *fwdsession.Session) {
	b.session = s
	b.attached.Store(true)
	b.filter.Reset()
	b.publisher.Publish(events.NewSessionEvent(events.SessionOpened, s.ID, s.RemoteAddr))
}

func (b *Bridge) teardown() {
	s := b.session
	b.session = nil
	b.attached.Store(false)
	b.filter.Reset()
	b.sessions.Close(s)
	b.publisher.Publish(events.NewSessionEvent(events.SessionClosed, s.ID, s.RemoteAddr))
}

// serviceClient greets a new client and handles one unit of inbound input.
func (b *Bridge) serviceClient() {
	if b.session.IsNew() {
		if !b.write(b.greeting) {
			return
		}
		b.session.ClearNew()
	}

	before := b.filter.Dropped()
	key, action := b.filter.Next(b.session)
	switch action {
	case fwdtelnet.Payload:
		if err := b.decoder.Write(key); err != nil {
			log.Warnf("Keystroke %q not written to bus: %v", key, err)
			return
		}
		b.metrics.IncKeystrokes()
		b.publisher.Publish(events.NewKeystrokeEvent(b.session.ID, key))
	case fwdtelnet.Negotiation:
		b.metrics.AddNegotiationBytes(b.filter.Dropped() - before)
	}
}

// emit formats ev, publishes it and writes it to the client if one is
// attached. Without a client the line is dropped.
func (b *Bridge) emit(ev fwdkeybus.Event) {
	line, elapsed := b.formatter.Stamp(ev)

	switch ev.Kind {
	case fwdkeybus.PanelEvent:
		b.metrics.IncPanelEvents()
	case fwdkeybus.ModuleEvent:
		b.metrics.IncModuleEvents()
	case fwdkeybus.Overflow:
		b.metrics.IncOverflows()
		log.Warn("Keybus buffer overflow")
	}

	b.publisher.Publish(events.Event{
		Type:      eventType(ev.Kind),
		Elapsed:   elapsed,
		Line:      line,
		Binary:    ev.Binary,
		Command:   ev.Command,
		Message:   ev.Message,
		Connected: ev.Connected,
	})

	if b.session != nil && b.write(line) {
		b.metrics.IncLinesOut()
	}
}

// write sends line to the client and tears the session down on failure.
func (b *Bridge) write(line string) bool {
	if err := b.session.WriteString(line); err != nil {
		log.Debugf("Dropping session %s: %v", b.session.ID, err)
		b.teardown()
		return false
	}
	return true
}

func eventType(kind fwdkeybus.EventKind) events.EventType {
	switch kind {
	case fwdkeybus.ModuleEvent:
		return events.ModuleEvent
	case fwdkeybus.ConnectionChange:
		return events.BusConnectionChanged
	case fwdkeybus.Overflow:
		return events.BufferOverflow
	default:
		return events.PanelEvent
	}
}
