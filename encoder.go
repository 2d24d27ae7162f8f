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
	"crypto/rand"
)

// FrameOpts mirrors the {fin, opcode, mask} triple §2 says the Encoder
// accepts for a data frame. Continuation selects the continuation opcode
// for every fragment after the first in a multi-frame message (send()'s
// internal MaxFragmentSize splitting, and stream()'s Pusher); it takes
// priority over Binary, matching RFC 6455 §5.4 (only the first frame of a
// fragmented message carries the real data type).
type FrameOpts struct {
	Fin          bool
	Binary       bool
	Continuation bool
	Mask         bool
}

// Encoder is the send-side external collaborator from §6. FrameEncoder is
// the concrete implementation; Session depends only on this interface.
type Encoder interface {
	Send(payload []byte, opts FrameOpts) error
	Ping(payload []byte, mask bool) error
	Pong(payload []byte, mask bool) error
	Close(code uint16, reason string, mask bool) error
}

// FrameEncoder writes frames directly to a Transport, one at a time and in
// call order (the "Sequential" contract of §2). It is adapted from the
// teacher's wsFillFrameHeader/wsCreateFrameHeader/wsEnqueueControlMessage*
// (nats-server server/websocket.go), with the NATS-specific outbound
// buffer-collapsing (wsCollapsePtoNB, compression, per-browser frame size
// capping) removed: this module's queue gate (session.go) already
// serializes writers at message granularity, so the Encoder itself can stay
// a thin, synchronous writer rather than a buffering one.
type FrameEncoder struct {
	transport Transport
}

// NewFrameEncoder returns an Encoder that writes frames to transport.
func NewFrameEncoder(transport Transport) *FrameEncoder {
	return &FrameEncoder{transport: transport}
}

func (e *FrameEncoder) Send(payload []byte, opts FrameOpts) error {
	op := opText
	if opts.Binary {
		op = opBinary
	}
	if opts.Continuation {
		op = opContinuation
	}
	return e.writeFrame(op, payload, opts.Fin, opts.Mask)
}

func (e *FrameEncoder) Ping(payload []byte, mask bool) error {
	return e.writeFrame(opPing, payload, true, mask)
}

func (e *FrameEncoder) Pong(payload []byte, mask bool) error {
	return e.writeFrame(opPong, payload, true, mask)
}

func (e *FrameEncoder) Close(code uint16, reason string, mask bool) error {
	payload := make([]byte, 2+len(reason))
	payload[0] = byte(code >> 8)
	payload[1] = byte(code)
	copy(payload[2:], reason)
	return e.writeFrame(opClose, payload, true, mask)
}

// writeFrame is shared by all four ops above; only the multi-frame send
// path in sendpath.go cares about fh.fin being false.
func (e *FrameEncoder) writeFrame(op opCode, payload []byte, fin, mask bool) error {
	fh := frameHeader{fin: fin, opCode: op, mask: mask, payloadLength: len(payload)}
	if mask {
		if _, err := rand.Read(fh.maskingKey[:]); err != nil {
			return newEncoderError(err)
		}
	}

	hdr := make([]byte, maxFrameHeaderSize)
	n := encodeFrameHeader(hdr, fh)
	if _, err := e.transport.Write(hdr[:n]); err != nil {
		return newEncoderError(err)
	}
	if len(payload) == 0 {
		return nil
	}
	out := payload
	if mask {
		out = append([]byte(nil), payload...)
		maskPayload(out, fh.maskingKey)
	}
	if _, err := e.transport.Write(out); err != nil {
		return newEncoderError(err)
	}
	return nil
}
