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

// onDecoderMessage surfaces a complete logical message to the application
// (§4.3 message channel).
func (s *Session) onDecoderMessage(data []byte, binary bool) {
	s.sink.fireMessage(data, MessageFlags{Binary: binary})
}

// onDecoderPing implements §4.2's auto-pong: reply before the ping event is
// surfaced (ordering guarantee §5.d / property P7), then let the
// application see it.
func (s *Session) onDecoderPing(data []byte) {
	s.enqueuePong(data)
	s.sink.firePing(data, MessageFlags{})
}

func (s *Session) onDecoderPong(data []byte) {
	s.sink.firePong(data, MessageFlags{})
}

// onDecoderClose implements §4.2's "On Decoder close event: invoke
// close(code, data)".
func (s *Session) onDecoderClose(code uint16, reason []byte) {
	s.closeWith(code, string(reason))
}

// onDecoderError implements §4.2/§7's ProtocolError handling: a close code,
// if present, triggers an automatic close(code, "") before error is
// surfaced, and the error always reaches the application.
func (s *Session) onDecoderError(reason string, code uint16, hasCode bool) {
	if hasCode && s.readyState != Closed {
		s.closeWith(code, "")
	}
	s.logger.Errorf("websocket: protocol error: %s", reason)
	s.raiseError(reason, code, hasCode)
}

// enqueuePong replies to a ping with a pong carrying the same payload and
// mask policy, going through the queue gate like any other outbound frame
// so it can't jump ahead of an in-flight streamed send (§4.2's "Control
// frames receive no preferential ordering").
func (s *Session) enqueuePong(data []byte) {
	mask := s.role.masksOutbound()
	send := func() {
		if err := s.encoder.Pong(data, mask); err != nil {
			s.logger.Errorf("websocket: failed writing pong: %v", err)
			s.raiseError(err.Error(), 0, false)
		}
	}
	if s.mode == modeStreaming {
		s.pending = append(s.pending, send)
		return
	}
	send()
}
