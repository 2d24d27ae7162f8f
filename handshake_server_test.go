package ws

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type hijackableRecorder struct {
	header http.Header
	conn   net.Conn
	brw    *bufio.ReadWriter
}

func newHijackableRecorder(conn net.Conn) *hijackableRecorder {
	return &hijackableRecorder{
		header: make(http.Header),
		conn:   conn,
		brw:    bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
	}
}

func (h *hijackableRecorder) Header() http.Header         { return h.header }
func (h *hijackableRecorder) Write(p []byte) (int, error) { return len(p), nil }
func (h *hijackableRecorder) WriteHeader(int)             {}
func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, h.brw, nil
}

func validUpgradeRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/chat", nil)
	req.Host = "example.com"
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestHandshakeResponderUpgradeSuccess(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	rec := newHijackableRecorder(serverSide)
	req := validUpgradeRequest()

	responder := &HandshakeResponder{}
	type outcome struct {
		result *ServerUpgradeResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := responder.Upgrade(rec, req)
		done <- outcome{result, err}
	}()

	br := bufio.NewReader(clientSide)
	statusLine, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "101")

	var acceptValue string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "sec-websocket-accept:") {
			acceptValue = strings.TrimSpace(line[len("Sec-WebSocket-Accept:"):])
		}
	}
	require.Equal(t, computeAccept("dGhlIHNhbXBsZSBub25jZQ=="), acceptValue)

	out := <-done
	require.NoError(t, out.err)
	require.NotNil(t, out.result)
	require.Empty(t, out.result.UpgradeHead)
}

func TestHandshakeResponderRejectsNonGET(t *testing.T) {
	rec := httptest.NewRecorder()
	req := validUpgradeRequest()
	req.Method = http.MethodPost
	_, err := (&HandshakeResponder{}).Upgrade(rec, req)
	require.Error(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandshakeResponderRejectsMissingUpgradeHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	req := validUpgradeRequest()
	req.Header.Del("Upgrade")
	_, err := (&HandshakeResponder{}).Upgrade(rec, req)
	require.Error(t, err)
}

func TestHandshakeResponderRejectsMissingKey(t *testing.T) {
	rec := httptest.NewRecorder()
	req := validUpgradeRequest()
	req.Header.Del("Sec-WebSocket-Key")
	_, err := (&HandshakeResponder{}).Upgrade(rec, req)
	require.Error(t, err)
}

func TestHandshakeResponderRejectsUnsupportedVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	req := validUpgradeRequest()
	req.Header.Set("Sec-WebSocket-Version", "7")
	_, err := (&HandshakeResponder{}).Upgrade(rec, req)
	require.Error(t, err)
}

func TestHandshakeResponderChecksOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	req := validUpgradeRequest()
	req.Header.Set("Origin", "http://evil.example.com")
	responder := &HandshakeResponder{AllowedOrigins: []string{"http://example.com"}}
	_, err := responder.Upgrade(rec, req)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandshakeResponderAllowsMatchingOrigin(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	rec := newHijackableRecorder(serverSide)
	req := validUpgradeRequest()
	req.Header.Set("Origin", "http://example.com")
	responder := &HandshakeResponder{AllowedOrigins: []string{"http://example.com"}}

	done := make(chan error, 1)
	go func() {
		_, err := responder.Upgrade(rec, req)
		done <- err
	}()

	br := bufio.NewReader(clientSide)
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
	}
	require.NoError(t, <-done)
}
