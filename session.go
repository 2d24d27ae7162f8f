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
	"net/http"
	"sync"

	"github.com/pion/logging"
)

// Session is the single per-connection state machine §3 describes: ready
// state, the queue gate, the Decoder-to-EventSink bindings and the close
// handshake. A Session is not safe for concurrent use -- §5 models a
// single-threaded, event-loop-cooperative scheduler, so all public methods
// and all Loop turns must run on the same goroutine.
type Session struct {
	role            Role
	readyState      ReadyState
	protocolVersion int
	subProtocol     string

	// url is set for RoleClient, upgradeRequest for RoleServer; only one
	// is ever populated, matching §3's "opaque descriptor of peer
	// identity" choice of one-or-the-other field.
	url            string
	upgradeRequest *http.Request

	transport Transport
	encoder   Encoder
	decoder   Decoder

	// MaxFragmentSize caps the payload carried by a single frame emitted
	// by send(); 0 means unlimited. Chunks pushed through stream()'s
	// Pusher are written as given and are not split. See SPEC_FULL §4.2.
	MaxFragmentSize int

	loop     *Loop
	stopped  chan struct{}
	stopOnce sync.Once

	logger logging.LeveledLogger

	mode    sendMode
	pending []deferredSend

	closeCode   uint16
	closeReason string

	sink              eventSink
	browserMessageIdx int
}

// sendMode is the explicit sum type the §9 design note asks for in place
// of a nil-checked queue field: Idle means frames may be emitted directly,
// Streaming means a multi-frame send owns the Encoder and every other
// send-shaped call must be deferred (invariant I4).
type sendMode int

const (
	modeIdle sendMode = iota
	modeStreaming
)

// deferredSend is one queued action, replayed in insertion order when the
// queue is released (I4).
type deferredSend func()

func newSession(role Role, version int, logger logging.LeveledLogger) *Session {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Session{
		role:              role,
		readyState:        Connecting,
		protocolVersion:   version,
		closeCode:         1000,
		loop:              NewLoop(),
		stopped:           make(chan struct{}),
		logger:            logger,
		browserMessageIdx: -1,
	}
}

// ReadyState returns the current lifecycle state (§3).
func (s *Session) ReadyState() ReadyState { return s.readyState }

// Role returns whether this session dialed out or adapted an accepted
// transport.
func (s *Session) Role() Role { return s.role }

// SubProtocol returns the sub-protocol negotiated at handshake time, or ""
// if none was.
func (s *Session) SubProtocol() string { return s.subProtocol }

// Loop exposes the session's event-loop primitive so tests can advance
// deferred turns deterministically (§9) and so a host can drive it in
// production via Loop().Run(stop).
func (s *Session) Loop() *Loop { return s.loop }

// OnOpen, OnMessage, OnPing, OnPong, OnError and OnClose attach listeners
// to the five-plus-one channels of §4.3. They must be called before the
// corresponding event can fire; per §5 (server role defers open by a turn,
// precisely so this ordering is achievable).
func (s *Session) OnOpen(l OpenListener)       { s.sink.OnOpen(l) }
func (s *Session) OnMessage(l MessageListener) { s.sink.OnMessage(l) }
func (s *Session) OnPing(l PingListener)       { s.sink.OnPing(l) }
func (s *Session) OnPong(l PongListener)       { s.sink.OnPong(l) }
func (s *Session) OnError(l ErrorListener)     { s.sink.OnError(l) }
func (s *Session) OnClose(l CloseListener)     { s.sink.OnClose(l) }

// transitionTo moves the session to next if the monotonic path (§3 I2)
// allows it, returning whether the transition happened.
func (s *Session) transitionTo(next ReadyState) bool {
	if !s.readyState.canTransition(next) {
		return false
	}
	s.readyState = next
	return true
}

// attachTransport wires a freshly validated Transport/Encoder/Decoder into
// the session (invariant I6: exactly one Transport+Encoder for the
// session's post-handshake lifetime; the Decoder is recreated only
// alongside the Transport).
func (s *Session) attachTransport(transport Transport, subProtocol string) {
	s.transport = transport
	s.subProtocol = subProtocol
	s.encoder = NewFrameEncoder(transport)
	s.decoder = NewFrameDecoder(DecoderEvents{
		OnText:   func(data []byte) { s.onDecoderMessage(data, false) },
		OnBinary: func(data []byte) { s.onDecoderMessage(data, true) },
		OnPing:   s.onDecoderPing,
		OnPong:   s.onDecoderPong,
		OnClose:  s.onDecoderClose,
		OnError:  s.onDecoderError,
	})
	transport.SetNoDelay(true)
}

// feed hands raw bytes read from the transport to the decoder. The reader
// goroutine started by startReading posts this onto the Loop so decode
// dispatch (and therefore every Session mutation it triggers) happens on
// the single event-loop thread; tests that don't start a reader goroutine
// call it directly instead.
func (s *Session) feed(p []byte) {
	if s.decoder == nil {
		return
	}
	s.decoder.Add(p)
}

// startReading spawns the one background goroutine a Session owns: a
// blocking read loop over the Transport. It never mutates Session fields
// directly -- every chunk (and the terminal error) is posted onto the Loop
// so §5's single-mutator-thread guarantee holds.
func (s *Session) startReading() {
	go func() {
		buf := make([]byte, 16*1024)
		for {
			n, err := s.transport.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				s.loop.Post(func() { s.feed(chunk) })
			}
			if err != nil {
				s.loop.Post(func() { s.onTransportEnd() })
				return
			}
		}
	}()
}

// onTransportEnd implements §4.2's "On transport end/close": if not
// already Closed, transition to Closed and fire close with whatever code/
// reason is on record (defaulting to 1000/"" per §6).
func (s *Session) onTransportEnd() {
	if s.readyState == Closed {
		return
	}
	code := s.closeCode
	if code == 0 {
		code = 1000
	}
	s.finish(code, s.closeReason)
}

// finish is the single place that moves a session to Closed and fires the
// at-most-once close event (P6), discarding the queue without replay (the
// terminal case of I5).
func (s *Session) finish(code uint16, reason string) {
	s.transitionTo(Closed)
	s.mode = modeIdle
	s.pending = nil
	s.stopOnce.Do(func() { close(s.stopped) })
	if s.transport != nil {
		s.transport.Close()
	}
	s.sink.fireClose(code, reason)
}

// raiseError is the "explicit raise_error method" the §9 design note asks
// for: it atomically surfaces an error and clears the queue (I5), so no
// caller can forget the clear.
func (s *Session) raiseError(reason string, code uint16, hasCode bool) {
	s.mode = modeIdle
	s.pending = nil
	s.sink.fireError(reason, code, hasCode)
}
