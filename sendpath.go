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

// SendOptions carries the {mask, binary} option semantics of §4.2's
// operations table. A nil *bool for Mask means "default to role": true for
// a client, false for a server (invariant I1 -- there is no per-call
// override of that default baked into the zero value, only an explicit one
// here for tests that need to violate the protocol on purpose).
type SendOptions struct {
	Binary bool
	Mask   *bool
}

func (o *SendOptions) binary() bool {
	if o == nil {
		return false
	}
	return o.Binary
}

func (o *SendOptions) mask(role Role) bool {
	if o != nil && o.Mask != nil {
		return *o.Mask
	}
	return role.masksOutbound()
}

// Send implements the send() operation of §4.2's table: one data frame (or,
// when MaxFragmentSize makes that necessary, a fragmented sequence) with
// fin=true on the terminal frame. cb, if non-nil, receives the outcome
// instead of it being raised to the error channel (the "callback
// discipline" of §4.2/§7).
func (s *Session) Send(data []byte, opts *SendOptions, cb func(error)) error {
	if s.readyState != Open {
		return s.deliverOrReturn(newNotOpenedError(), cb)
	}
	action := func() { s.doSend(data, opts, cb) }
	if s.mode == modeStreaming {
		s.pending = append(s.pending, action)
		return nil
	}
	action()
	return nil
}

func (s *Session) doSend(data []byte, opts *SendOptions, cb func(error)) {
	mask := opts.mask(s.role)
	frameOpts := FrameOpts{Binary: opts.binary(), Mask: mask}

	limit := s.MaxFragmentSize
	if limit <= 0 || len(data) <= limit {
		frameOpts.Fin = true
		s.completeSend(s.encoder.Send(data, frameOpts), cb)
		return
	}
	for off := 0; off < len(data); off += limit {
		end := off + limit
		if end > len(data) {
			end = len(data)
		}
		frameOpts.Fin = end == len(data)
		frameOpts.Continuation = off > 0
		if err := s.encoder.Send(data[off:end], frameOpts); err != nil {
			s.completeSend(err, cb)
			return
		}
	}
	s.completeSend(nil, cb)
}

// completeSend applies the callback-discipline rule of §7: a callback
// absorbs the error instead of it reaching the error channel. err, when
// non-nil, is already the *Error the Encoder produced.
func (s *Session) completeSend(err error, cb func(error)) {
	if err == nil {
		if cb != nil {
			cb(nil)
		}
		return
	}
	if cb != nil {
		cb(err)
		return
	}
	s.logger.Errorf("websocket: send failed: %v", err)
	s.raiseError(err.Error(), 0, false)
}

func (s *Session) deliverOrReturn(err *Error, cb func(error)) error {
	if cb != nil {
		cb(err)
		return nil
	}
	return err
}

// Pusher is handed to a Stream producer; it is the push(data, final)
// function of §4.2.
type Pusher struct {
	session *Session
	opts    *SendOptions
	started bool
}

// Push emits one fragment. final=true emits the terminal fin=true frame
// and schedules the queue release on the Loop's next turn (§5's "Queue
// release is deferred by one turn after the terminal frame"). If the
// session isn't Open at this chunk boundary, it returns NotOpened and
// does not release the queue (step 4 of the streaming algorithm: the
// session is now terminal, nothing to replay). Only the first pushed
// fragment carries the text/binary opcode; later ones are continuations
// (RFC 6455 §5.4).
func (p *Pusher) Push(data []byte, final bool) error {
	if p.session.readyState != Open {
		return newNotOpenedError()
	}
	frameOpts := FrameOpts{
		Fin:          final,
		Binary:       p.opts.binary(),
		Continuation: p.started,
		Mask:         p.opts.mask(p.session.role),
	}
	p.started = true
	err := p.session.encoder.Send(data, frameOpts)
	if final {
		p.session.loop.Post(p.session.releaseQueue)
	}
	return err
}

// Stream implements the stream() operation: the queue is installed before
// producer is invoked, held for the duration of the multi-frame message,
// and released only once producer has pushed a final=true fragment.
func (s *Session) Stream(opts *SendOptions, producer func(*Pusher)) error {
	if producer == nil {
		return newNoCallbackError()
	}
	if s.readyState != Open {
		return newNotOpenedError()
	}
	start := func() {
		s.mode = modeStreaming
		producer(&Pusher{session: s, opts: opts})
	}
	if s.mode == modeStreaming {
		s.pending = append(s.pending, start)
		return nil
	}
	start()
	return nil
}

// releaseQueue replays deferred sends in insertion order (I4) once a
// streamed message's terminal frame has been emitted.
func (s *Session) releaseQueue() {
	if s.mode != modeStreaming {
		return
	}
	s.mode = modeIdle
	actions := s.pending
	s.pending = nil
	for _, action := range actions {
		action()
	}
}

// Ping implements the ping() operation: one ping control frame, deferred
// behind an in-flight streamed send like any other outbound frame.
func (s *Session) Ping(data []byte, opts *SendOptions) error {
	if s.readyState != Open {
		return newNotOpenedError()
	}
	mask := opts.mask(s.role)
	send := func() {
		if err := s.encoder.Ping(data, mask); err != nil {
			s.logger.Errorf("websocket: failed writing ping: %v", err)
			s.raiseError(err.Error(), 0, false)
		}
	}
	if s.mode == modeStreaming {
		s.pending = append(s.pending, send)
		return nil
	}
	send()
	return nil
}

// Pong implements the pong() operation (unsolicited pong; the auto-reply
// path is enqueuePong in protocol.go).
func (s *Session) Pong(data []byte, opts *SendOptions) error {
	if s.readyState != Open {
		return newNotOpenedError()
	}
	mask := opts.mask(s.role)
	send := func() {
		if err := s.encoder.Pong(data, mask); err != nil {
			s.logger.Errorf("websocket: failed writing pong: %v", err)
			s.raiseError(err.Error(), 0, false)
		}
	}
	if s.mode == modeStreaming {
		s.pending = append(s.pending, send)
		return nil
	}
	send()
	return nil
}

// Close implements the close protocol of §4.2.
func (s *Session) Close(code uint16, reason string) error {
	switch s.readyState {
	case Closed:
		return newNotOpenedError()
	case Closing:
		return nil
	case Connecting:
		// Shortcut to Closed; no close frame (there is no transport
		// yet). The pending handshake completion observes Closed and
		// fires the close event itself (§4.1 step 6).
		s.closeCode, s.closeReason = normalizeCloseArgs(code, reason)
		s.transitionTo(Closed)
		return nil
	default: // Open
		return s.closeWith(code, reason)
	}
}

func (s *Session) closeWith(code uint16, reason string) error {
	if s.readyState != Open {
		return nil
	}
	s.closeCode, s.closeReason = normalizeCloseArgs(code, reason)
	s.transitionTo(Closing)
	// A close in flight discards any queued sends without replay; I5's
	// logic applies here too since nothing after a close frame should
	// still be delivered.
	s.mode = modeIdle
	s.pending = nil
	if err := s.encoder.Close(s.closeCode, s.closeReason, s.role.masksOutbound()); err != nil {
		s.logger.Errorf("websocket: failed writing close frame: %v", err)
	}
	s.finish(s.closeCode, s.closeReason)
	return nil
}

func normalizeCloseArgs(code uint16, reason string) (uint16, string) {
	if code == 0 {
		code = 1000
	}
	return code, reason
}

// Terminate implements terminate(): the unconditional cancel primitive.
// In-flight queued sends are dropped without invoking their callbacks.
func (s *Session) Terminate() {
	if s.readyState == Closed {
		return
	}
	s.mode = modeIdle
	s.pending = nil
	code := s.closeCode
	if code == 0 {
		code = 1000
	}
	s.finish(code, s.closeReason)
}
