// Copyright 2020 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ws

import (
	"net"
	"time"
)

// Transport is the bidirectional, ordered, reliable byte stream §2
// describes. *net.TCPConn satisfies it as-is; a net.Conn without
// SetNoDelay (such as *tls.Conn) goes through connTransport; tests supply
// a fake.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	// SetNoDelay is the "no-delay hint" from §2. Implementations that
	// cannot honor it (a pipe, a fake) may no-op.
	SetNoDelay(noDelay bool) error

	// SetReadDeadline supports the "unbounded read timeout" default by
	// accepting the zero time.Time to clear any deadline.
	SetReadDeadline(t time.Time) error

	// Close cancels the transport; it must unblock any in-flight Read.
	Close() error
}

// tcpTransport adapts *net.TCPConn to Transport; most real dials produce
// one of these.
type tcpTransport struct {
	*net.TCPConn
}

func newTCPTransport(c *net.TCPConn) Transport { return tcpTransport{c} }

// connTransport adapts a generic net.Conn (e.g. *tls.Conn, or whatever a
// server hands the adapter after hijacking) to Transport. SetNoDelay is a
// no-op when the underlying conn isn't a *net.TCPConn.
type connTransport struct {
	net.Conn
}

func newConnTransport(c net.Conn) Transport { return connTransport{c} }

func (c connTransport) SetNoDelay(noDelay bool) error {
	if tc, ok := c.Conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(noDelay)
	}
	return nil
}
