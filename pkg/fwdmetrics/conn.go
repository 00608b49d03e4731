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

package fwdmetrics

import (
	"net"
)

// CountingConn wraps a client connection and counts bytes in both
// directions. Deadlines, Close and addresses pass through to the wrapped conn.
type CountingConn struct {
	net.Conn
	conn    net.Conn
	metrics *BridgeMetrics
}

// NewCountingConn wraps conn. A nil metrics disables counting.
func NewCountingConn(conn net.Conn, metrics *BridgeMetrics) *CountingConn {
	return &CountingConn{
		Conn:    conn,
		conn:    conn,
		metrics: metrics,
	}
}

// Read reads from the client and counts bytes received
func (c *CountingConn) Read(p []byte) (n int, err error) {
	n, err = c.conn.Read(p)
	if n > 0 && c.metrics != nil {
		c.metrics.AddBytesIn(uint64(n))
	}
	return n, err
}

// Write writes to the client and counts bytes sent
func (c *CountingConn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if n > 0 && c.metrics != nil {
		c.metrics.AddBytesOut(uint64(n))
	}
	return n, err
}

// Unwrap returns the underlying connection
func (c *CountingConn) Unwrap() net.Conn {
	return c.conn
}
