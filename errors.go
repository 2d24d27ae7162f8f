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

	"github.com/pkg/errors"
)

// ErrorKind identifies one of the error taxonomies from the session's error
// handling design. A caller that needs to branch on failure mode should
// switch on Kind rather than string-matching Error().
type ErrorKind int

const (
	// ErrInvalidURL means the client dial target could not be parsed or
	// is missing a host.
	ErrInvalidURL ErrorKind = iota
	// ErrUnsupportedVersion means the requested protocol_version is
	// neither 8 nor 13.
	ErrUnsupportedVersion
	// ErrInvalidServerKey means Sec-WebSocket-Accept was absent or did
	// not match the expected value.
	ErrInvalidServerKey
	// ErrTransport wraps a failure from the underlying Transport.
	ErrTransport
	// ErrNotOpened means an operation was attempted while ready_state
	// was not Open (or, for close, was already Closed).
	ErrNotOpened
	// ErrProtocol wraps a Decoder-reported protocol violation; it may
	// carry a CloseCode.
	ErrProtocol
	// ErrEncoder wraps a failure surfaced by the Encoder.
	ErrEncoder
	// ErrNoCallback means stream() was called without a callback.
	ErrNoCallback
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidURL:
		return "InvalidUrl"
	case ErrUnsupportedVersion:
		return "UnsupportedVersion"
	case ErrInvalidServerKey:
		return "InvalidServerKey"
	case ErrTransport:
		return "TransportError"
	case ErrNotOpened:
		return "NotOpened"
	case ErrProtocol:
		return "ProtocolError"
	case ErrEncoder:
		return "EncoderError"
	case ErrNoCallback:
		return "NoCallback"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the error type raised or delivered by this package. CloseCode is
// set only for ErrProtocol, and only when the Decoder supplied one.
type Error struct {
	Kind      ErrorKind
	Message   string
	CloseCode uint16
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("websocket: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("websocket: %s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As reach the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: errors.Wrap(cause, msg)}
}

func newInvalidURLError(msg string) *Error {
	return newError(ErrInvalidURL, msg)
}

func newUnsupportedVersionError(version int) *Error {
	return newError(ErrUnsupportedVersion, fmt.Sprintf("unsupported protocol version %d", version))
}

func newInvalidServerKeyError() *Error {
	return newError(ErrInvalidServerKey, "invalid server key")
}

func newTransportError(cause error) *Error {
	return wrapError(ErrTransport, "transport failed", cause)
}

func newNotOpenedError() *Error {
	return newError(ErrNotOpened, "not opened")
}

func newProtocolError(code uint16, reason string) *Error {
	return &Error{Kind: ErrProtocol, Message: reason, CloseCode: code}
}

func newEncoderError(cause error) *Error {
	return wrapError(ErrEncoder, "encoder failed", cause)
}

func newNoCallbackError() *Error {
	return newError(ErrNoCallback, "stream requires a callback")
}
