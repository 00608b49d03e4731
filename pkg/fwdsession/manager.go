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

// Package fwdsession owns the single client slot of the bridge.
//
// A background acceptor parks at most one incoming connection in a pending
// slot. The bridge loop claims it with Accept, which never blocks. Anything
// that arrives while the slot is taken gets the busy line and is closed.
package fwdsession

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
)

// BusyLine is written to connections refused because a client is already
// attached.
const BusyLine = "Keybus bridge busy, one client at a time.\r\n"

// DefaultWriteTimeout bounds every write to the client.
const DefaultWriteTimeout = 2 * time.Second

// Options configures a Manager.
type Options struct {
	WriteTimeout time.Duration
	Metrics      *fwdmetrics.BridgeMetrics // optional
}

// Manager holds the listener, the pending slot and the active session.
type Manager struct {
	ln   net.Listener
	opts Options

	mu       sync.Mutex
	pending  net.Conn
	active   *Session
	shutdown bool

	wg sync.WaitGroup
}

// Listen opens a TCP listener on addr with SO_REUSEADDR where supported and
// starts accepting.
func Listen(ctx context.Context, addr string, opts Options) (*Manager, error) {
	lc := net.ListenConfig{Control: control}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return NewManager(ln, opts), nil
}

// NewManager starts accepting on an existing listener.
func NewManager(ln net.Listener, opts Options) *Manager {
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	m := &Manager{ln: ln, opts: opts}
	m.wg.Add(1)
	go m.acceptLoop()
	return m
}

func (m *Manager) acceptLoop() {
	defer m.wg.Done()
	for {
		conn, err := m.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warnf("Accept failed: %v", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if err := m.offer(conn); err != nil {
			log.Infof("Refused %s: %v", conn.RemoteAddr(), err)
		}
	}
}

// offer parks conn in the pending slot or refuses it.
func (m *Manager) offer(conn net.Conn) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	if m.active != nil || m.pending != nil {
		m.mu.Unlock()
		if m.opts.Metrics != nil {
			m.opts.Metrics.IncSessionRejected()
		}
		_ = conn.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout))
		_, _ = conn.Write([]byte(BusyLine))
		_ = conn.Close()
		return ErrSessionBusy
	}
	m.pending = conn
	m.mu.Unlock()
	return nil
}

// Accept claims the pending connection, if any, as the new session. It
// returns nil when nothing is waiting or a session is already active.
func (m *Manager) Accept() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil || m.pending == nil {
		return nil
	}

	conn := m.pending
	m.pending = nil
	if m.opts.Metrics != nil {
		conn = fwdmetrics.NewCountingConn(conn, m.opts.Metrics)
		m.opts.Metrics.IncSessionAccepted()
	}
	m.active = newSession(conn, m.opts.WriteTimeout)
	log.Infof("Client %s connected (session %s)", m.active.RemoteAddr, m.active.ID)
	return m.active
}

// IsConnected reports whether s is the active session and its client is
// still attached.
func (m *Manager) IsConnected(s *Session) bool {
	if s == nil {
		return false
	}
	m.mu.Lock()
	current := m.active == s
	m.mu.Unlock()
	return current && s.Connected()
}

// Close releases s and frees the slot for the next Accept.
func (m *Manager) Close(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	if m.active == s {
		m.active = nil
	}
	m.mu.Unlock()

	if err := s.close(); err != nil {
		log.Debugf("Closing session %s: %v", s.ID, err)
	}
	log.Infof("Client %s disconnected (session %s)", s.RemoteAddr, s.ID)
}

// Current returns the active session.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoSession
	}
	return m.active, nil
}

// Addr returns the listening address.
func (m *Manager) Addr() net.Addr {
	return m.ln.Addr()
}

// Shutdown stops accepting and closes any pending or active connection.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	pending, active := m.pending, m.active
	m.pending, m.active = nil, nil
	m.mu.Unlock()

	err := m.ln.Close()
	m.wg.Wait()

	if pending != nil {
		_ = pending.Close()
	}
	if active != nil {
		_ = active.close()
	}
	return errors.Wrap(err, "close listener")
}
