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

package fwdsession

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const readChunk = 512

// Session is the one connected client. Inbound bytes are pumped by a
// reader goroutine; everything else is called from the bridge loop only.
type Session struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	conn         net.Conn
	writeTimeout time.Duration

	inbound    chan []byte
	readerDone chan struct{}
	done       chan struct{}
	buf        []byte

	isNew     bool
	broken    atomic.Bool
	closeOnce sync.Once
}

func newSession(conn net.Conn, writeTimeout time.Duration) *Session {
	s := &Session{
		ID:           uuid.New().String(),
		RemoteAddr:   conn.RemoteAddr().String(),
		ConnectedAt:  time.Now(),
		conn:         conn,
		writeTimeout: writeTimeout,
		inbound:      make(chan []byte, 16),
		readerDone:   make(chan struct{}),
		done:         make(chan struct{}),
		isNew:        true,
	}
	go s.read()
	return s
}

func (s *Session) read() {
	defer close(s.readerDone)
	for {
		chunk := make([]byte, readChunk)
		n, err := s.conn.Read(chunk)
		if n > 0 {
			select {
			case s.inbound <- chunk[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			log.Debugf("Session %s read ended: %v", s.ID, err)
			return
		}
	}
}

// drain moves whatever the reader has delivered into the local buffer
// without blocking.
func (s *Session) drain() {
	for {
		select {
		case chunk := <-s.inbound:
			s.buf = append(s.buf, chunk...)
		default:
			return
		}
	}
}

// Len returns the number of inbound bytes that can be read now.
func (s *Session) Len() int {
	s.drain()
	return len(s.buf)
}

// ReadByte pops one inbound byte. It never blocks.
func (s *Session) ReadByte() (byte, error) {
	if len(s.buf) == 0 {
		s.drain()
	}
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Connected reports whether the client is still there. Bytes that arrived
// before the peer hung up keep the session alive until they are consumed.
func (s *Session) Connected() bool {
	if s.broken.Load() {
		return false
	}
	select {
	case <-s.readerDone:
		return s.Len() > 0
	default:
		return true
	}
}

// WriteString sends line to the client. A failed write marks the session
// disconnected.
func (s *Session) WriteString(line string) error {
	if s.broken.Load() {
		return ErrClosed
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write([]byte(line)); err != nil {
		s.broken.Store(true)
		return errors.Wrapf(err, "write to session %s", s.ID)
	}
	return nil
}

// IsNew reports whether the greeting is still owed.
func (s *Session) IsNew() bool {
	return s.isNew
}

// ClearNew marks the greeting as sent.
func (s *Session) ClearNew() {
	s.isNew = false
}

// close releases the socket and stops the reader.
func (s *Session) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.broken.Store(true)
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
