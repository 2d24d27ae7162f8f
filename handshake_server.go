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
	"strings"
)

// ServerUpgradeResult is what HandshakeResponder.Upgrade hands back: a
// Transport ready for NewServerSession, plus whatever bytes the client
// sent immediately after the handshake (the "upgrade head").
type ServerUpgradeResult struct {
	Transport   Transport
	UpgradeHead []byte
}

// HandshakeResponder validates and accepts an HTTP Upgrade request and
// hijacks the connection, producing the Transport the spec's server
// adapter (§4.1) needs. §4.1 places this collaborator's HTTP-side
// negotiation out of this spec's scope ("the responsibility of the
// collaborator that supplies these inputs"); this type is that
// collaborator, adapted directly from the teacher's
// Server.wsUpgrade/wsAcceptKey/wsHeaderContains/wsGetHostAndPort and
// srvWebsocket.checkOrigin (nats-server server/websocket.go), with the
// NATS-account-specific JWT cookie and per-server listener bookkeeping
// removed.
type HandshakeResponder struct {
	// AllowedOrigins, if non-empty, restricts which Origin header values
	// are accepted; an empty list allows any origin.
	AllowedOrigins []string
}

// Upgrade validates r per RFC 6455 §4.2.1, hijacks the connection and
// writes the 101 response. On any validation failure it writes the
// appropriate HTTP error response itself and returns a non-nil error;
// callers should not write to w afterwards either way.
func (h *HandshakeResponder) Upgrade(w http.ResponseWriter, r *http.Request) (*ServerUpgradeResult, error) {
	if r.Method != http.MethodGet {
		return nil, h.httpError(w, http.StatusMethodNotAllowed, "request method must be GET")
	}
	if r.Host == "" {
		return nil, h.httpError(w, http.StatusBadRequest, "'Host' missing in request")
	}
	if !headerContainsTokenHTTP(r.Header, "Upgrade", "websocket") {
		return nil, h.httpError(w, http.StatusBadRequest, "invalid value for header 'Upgrade'")
	}
	if !headerContainsTokenHTTP(r.Header, "Connection", "Upgrade") {
		return nil, h.httpError(w, http.StatusBadRequest, "invalid value for header 'Connection'")
	}
	key := strings.TrimSpace(r.Header.Get("Sec-WebSocket-Key"))
	if key == "" {
		return nil, h.httpError(w, http.StatusBadRequest, "key missing")
	}
	version := r.Header.Get("Sec-WebSocket-Version")
	if version != "13" && version != "8" {
		return nil, h.httpError(w, http.StatusBadRequest, "unsupported Sec-WebSocket-Version")
	}
	if err := h.checkOrigin(r); err != nil {
		return nil, h.httpError(w, http.StatusForbidden, fmt.Sprintf("origin not allowed: %v", err))
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, h.httpError(w, http.StatusInternalServerError, "response does not support hijacking")
	}
	conn, brw, err := hj.Hijack()
	if err != nil {
		return nil, err
	}

	var head []byte
	if n := brw.Reader.Buffered(); n > 0 {
		head = make([]byte, n)
		brw.Reader.Read(head)
	}

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + computeAccept(key) + "\r\n"
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		resp += "Sec-WebSocket-Protocol: " + proto + "\r\n"
	}
	resp += "\r\n"
	if _, err := brw.WriteString(resp); err != nil {
		conn.Close()
		return nil, err
	}
	if err := brw.Flush(); err != nil {
		conn.Close()
		return nil, err
	}
	return &ServerUpgradeResult{Transport: newConnTransport(conn), UpgradeHead: head}, nil
}

func (h *HandshakeResponder) httpError(w http.ResponseWriter, status int, reason string) error {
	w.Header().Set("Sec-WebSocket-Version", "13")
	http.Error(w, reason, status)
	return fmt.Errorf("websocket handshake error: %s", reason)
}

func (h *HandshakeResponder) checkOrigin(r *http.Request) error {
	if len(h.AllowedOrigins) == 0 {
		return nil
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Sec-WebSocket-Origin")
	}
	if origin == "" {
		return fmt.Errorf("origin not provided")
	}
	u, err := url.ParseRequestURI(origin)
	if err != nil {
		return err
	}
	host, _, _ := net.SplitHostPort(u.Host)
	if host == "" {
		host = u.Host
	}
	for _, allowed := range h.AllowedOrigins {
		au, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		ah, _, _ := net.SplitHostPort(au.Host)
		if ah == "" {
			ah = au.Host
		}
		if strings.EqualFold(ah, host) && strings.EqualFold(au.Scheme, u.Scheme) {
			return nil
		}
	}
	return fmt.Errorf("origin %q not in allowed list", origin)
}

func headerContainsTokenHTTP(header http.Header, name, token string) bool {
	for _, v := range header[http.CanonicalHeaderKey(name)] {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
