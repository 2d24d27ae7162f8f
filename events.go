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

// MessageFlags accompanies a message event; Binary is true iff the message
// arrived with the binary opcode (§4.3).
type MessageFlags struct {
	Binary bool
}

// OpenListener, etc: the five channels §4.3 exposes, plus close.
type (
	OpenListener    func()
	MessageListener func(data []byte, flags MessageFlags)
	PingListener    func(data []byte, flags MessageFlags)
	PongListener    func(data []byte, flags MessageFlags)
	ErrorListener   func(reason string, code uint16, hasCode bool)
	CloseListener   func(code uint16, reason string)
)

// eventSink is the observer surface the application attaches listeners to.
// Per §5, every mutation happens on the Session's own event-loop goroutine,
// so plain slices suffice -- no lock. Subscribing from another goroutine is
// not supported, matching the single-threaded scheduling model of §5.
type eventSink struct {
	onOpen    []OpenListener
	onMessage []MessageListener
	onPing    []PingListener
	onPong    []PongListener
	onError   []ErrorListener
	onClose   []CloseListener

	closeFired bool // enforces P6: close fires at most once
}

func (s *eventSink) OnOpen(l OpenListener) { s.onOpen = append(s.onOpen, l) }
func (s *eventSink) OnMessage(l MessageListener) {
	s.onMessage = append(s.onMessage, l)
}
func (s *eventSink) OnPing(l PingListener)   { s.onPing = append(s.onPing, l) }
func (s *eventSink) OnPong(l PongListener)   { s.onPong = append(s.onPong, l) }
func (s *eventSink) OnError(l ErrorListener) { s.onError = append(s.onError, l) }
func (s *eventSink) OnClose(l CloseListener) { s.onClose = append(s.onClose, l) }

func (s *eventSink) fireOpen() {
	for _, l := range s.onOpen {
		l()
	}
}

func (s *eventSink) fireMessage(data []byte, flags MessageFlags) {
	for _, l := range s.onMessage {
		l(data, flags)
	}
}

func (s *eventSink) firePing(data []byte, flags MessageFlags) {
	for _, l := range s.onPing {
		l(data, flags)
	}
}

func (s *eventSink) firePong(data []byte, flags MessageFlags) {
	for _, l := range s.onPong {
		l(data, flags)
	}
}

func (s *eventSink) fireError(reason string, code uint16, hasCode bool) {
	for _, l := range s.onError {
		l(reason, code, hasCode)
	}
}

func (s *eventSink) fireClose(code uint16, reason string) {
	if s.closeFired {
		return
	}
	s.closeFired = true
	for _, l := range s.onClose {
		l(code, reason)
	}
}

// BrowserMessage is the {data} shape a browser-style onmessage handler
// expects, per the §4.3/§9 "browser adapter" design note.
type BrowserMessage struct {
	Data []byte
}

// BrowserMessageListener is the wrapping form of MessageListener the
// browser adapter exposes.
type BrowserMessageListener func(BrowserMessage)

// SetOnMessage installs l as the session's sole onmessage-style handler,
// translating the native (data, flags) channel into the wrapped {data} form.
// Calling it again replaces the previously wrapped handler in place rather
// than stacking a second one, matching the single-setter semantics of a DOM
// EventTarget property (as opposed to OnMessage's multi-subscriber form).
// The session keeps the slice index of the installed native closure as its
// "side table" entry (§9), since Go func values aren't comparable.
func (s *Session) SetOnMessage(l BrowserMessageListener) {
	native := func(data []byte, _ MessageFlags) {
		l(BrowserMessage{Data: data})
	}
	if s.browserMessageIdx >= 0 {
		s.sink.onMessage[s.browserMessageIdx] = native
		return
	}
	s.sink.OnMessage(native)
	s.browserMessageIdx = len(s.sink.onMessage) - 1
}
