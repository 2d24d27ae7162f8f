package ws

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoClientHandshakeUnsupportedVersion(t *testing.T) {
	_, err := doClientHandshake(&captureTransport{}, "ws://example.com/", ClientOptions{ProtocolVersion: 99})
	require.NotNil(t, err)
	require.Equal(t, ErrUnsupportedVersion, err.Kind)
}

func TestDoClientHandshakeInvalidURL(t *testing.T) {
	_, err := doClientHandshake(&captureTransport{}, "not a url", ClientOptions{})
	require.NotNil(t, err)
	require.Equal(t, ErrInvalidURL, err.Kind)
}

func TestDoClientHandshakeBadScheme(t *testing.T) {
	_, err := doClientHandshake(&captureTransport{}, "http://example.com/", ClientOptions{})
	require.NotNil(t, err)
	require.Equal(t, ErrInvalidURL, err.Kind)
}

func TestDoClientHandshakeSuccess(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	entropy := func() int64 { return 42 }
	opts := ClientOptions{ProtocolVersion: 13, SubProtocol: "chat", keyEntropy: entropy}
	key := clientSessionKey(13, entropy)
	accept := computeAccept(key)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		br := bufio.NewReader(serverConn)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		resp := "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: " + accept + "\r\n" +
			"Sec-WebSocket-Protocol: chat\r\n\r\n"
		serverConn.Write([]byte(resp))
	}()

	result, err := doClientHandshake(newConnTransport(clientConn), "ws://example.com/chat", opts)
	require.Nil(t, err)
	require.NotNil(t, result)
	require.Equal(t, "chat", result.subProtocol)
	<-serverDone
}

func TestDoClientHandshakeRejectsBadAccept(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		br := bufio.NewReader(serverConn)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		resp := "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: not-the-right-value\r\n\r\n"
		serverConn.Write([]byte(resp))
	}()

	_, err := doClientHandshake(newConnTransport(clientConn), "ws://example.com/", ClientOptions{ProtocolVersion: 13})
	require.NotNil(t, err)
	require.Equal(t, ErrInvalidServerKey, err.Kind)
	<-serverDone
}

func TestDoClientHandshakeRejectsNon101(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		br := bufio.NewReader(serverConn)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		serverConn.Write([]byte("HTTP/1.1 404 Not Found\r\n\r\n"))
	}()

	_, err := doClientHandshake(newConnTransport(clientConn), "ws://example.com/", ClientOptions{ProtocolVersion: 13})
	require.NotNil(t, err)
	require.Equal(t, ErrTransport, err.Kind)
	<-serverDone
}
