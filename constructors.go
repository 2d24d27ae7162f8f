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
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pion/logging"
)

// dialTimeout bounds the TCP connect step of DialClient; the handshake
// itself has no deadline beyond whatever ReadDeadline the caller sets on
// the resulting Session's transport.
const dialTimeout = 10 * time.Second

// abnormalClosureCode is RFC 6455's reserved status for a connection that
// ended without ever completing a close handshake -- used here when a
// client dial fails outright, so OnClose still observes a code.
const abnormalClosureCode = 1006

// NewClientSession implements §4.1's client algorithm: it returns
// immediately in Connecting, runs the handshake against transport on a
// background goroutine (the only I/O a Session ever does off its Loop
// besides startReading's read pump), and posts the outcome onto the Loop
// so every subsequent mutation -- attaching the transport, firing open,
// feeding any upgrade head -- happens on the single mutator thread.
//
// Closing the session before the handshake resolves is valid per I2's
// Connecting->Closed shortcut; onClientHandshakeResult notices the session
// is already Closed and fires the close event itself, matching §4.1 step 6.
// Terminate in Connecting fires the close event at once instead, and the
// later handshake result only tears down the transport.
func NewClientSession(transport Transport, rawURL string, opts ClientOptions, logger logging.LeveledLogger) *Session {
	s := newSession(RoleClient, opts.version(), logger)
	s.url = rawURL
	go func() {
		result, err := doClientHandshake(transport, rawURL, opts)
		s.loop.Post(func() { s.onClientHandshakeResult(transport, result, err) })
	}()
	return s
}

func (s *Session) onClientHandshakeResult(transport Transport, result *clientHandshakeResult, err *Error) {
	if s.readyState == Closed {
		if err == nil {
			transport.Close()
		}
		s.stopOnce.Do(func() { close(s.stopped) })
		s.sink.fireClose(s.closeCode, s.closeReason)
		return
	}
	if err != nil {
		transport.Close()
		s.logger.Errorf("websocket: handshake failed: %v", err)
		s.raiseError(err.Error(), 0, false)
		s.finish(abnormalClosureCode, err.Error())
		return
	}
	s.attachTransport(transport, result.subProtocol)
	s.transitionTo(Open)
	s.startReading()
	s.sink.fireOpen()
	if len(result.upgradeHead) > 0 {
		s.feed(result.upgradeHead)
	}
}

// DialClient is the TCP counterpart to NewClientSession: it resolves
// rawURL's host:port, dials it, wraps the resulting *net.TCPConn in a
// tcpTransport (the newTCPTransport adapter transport.go declares for
// exactly this), and hands the transport to NewClientSession. wss:// is
// rejected outright -- TLS dialing is out of scope (SPEC_FULL.md
// Non-goals); a caller that needs it dials its own *tls.Conn, wraps it in
// its own Transport implementation and calls NewClientSession directly.
func DialClient(rawURL string, opts ClientOptions, logger logging.LeveledLogger) (*Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, newInvalidURLError(fmt.Sprintf("invalid websocket url %q", rawURL))
	}
	if u.Scheme == "wss" {
		return nil, newInvalidURLError("wss:// dialing requires a caller-supplied *tls.Conn; use NewClientSession directly")
	}
	if u.Scheme != "ws" {
		return nil, newInvalidURLError(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "80")
	}
	conn, err := net.DialTimeout("tcp", host, dialTimeout)
	if err != nil {
		return nil, newTransportError(err)
	}
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return NewClientSession(newConnTransport(conn), rawURL, opts, logger), nil
	}
	return NewClientSession(newTCPTransport(tc), rawURL, opts, logger), nil
}

// NewServerSession implements §4.1's server-side adapter: result comes
// from a HandshakeResponder.Upgrade call the host already performed. Per
// §5's "server role defers open by one turn", the Transport is attached
// immediately (so Send/Ping/etc. preconditions see a consistent Encoder)
// but Open only fires on the Loop's next turn, giving the caller a chance
// to register OnOpen/OnMessage/etc. between construction and the first
// event.
func NewServerSession(result *ServerUpgradeResult, upgradeRequest *http.Request, version int, subProtocol string, logger logging.LeveledLogger) *Session {
	s := newSession(RoleServer, version, logger)
	s.upgradeRequest = upgradeRequest
	s.attachTransport(result.Transport, subProtocol)
	s.loop.Post(func() { s.openServerSession(result.UpgradeHead) })
	return s
}

func (s *Session) openServerSession(upgradeHead []byte) {
	if s.readyState == Closed {
		if s.transport != nil {
			s.transport.Close()
		}
		s.stopOnce.Do(func() { close(s.stopped) })
		s.sink.fireClose(s.closeCode, s.closeReason)
		return
	}
	if s.readyState != Connecting {
		return
	}
	s.transitionTo(Open)
	s.startReading()
	s.sink.fireOpen()
	if len(upgradeHead) > 0 {
		s.feed(upgradeHead)
	}
}
