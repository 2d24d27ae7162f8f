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

// Package ws implements the core of a HyBi-13 (RFC 6455) WebSocket session:
// the connection lifecycle state machine, the client dial handshake, a
// server-side adapter that takes over an already-upgraded connection, the
// framed send path (including queued streaming of large payloads) and the
// receive dispatch with its control-frame protocol interaction.
//
// Byte-level frame encoding and decoding are implemented by FrameEncoder and
// FrameDecoder, but the Session only depends on the narrower Encoder and
// Decoder interfaces, so either can be swapped for a test double.
package ws
