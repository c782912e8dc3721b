package protocol_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsreactor/protocol"
)

const sampleKey = "dGhlIHNhbXBsZSBub25jZQ=="

func upgradeRequest(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n\r\n"
}

func validRequest() string {
	return upgradeRequest(
		"GET /chat HTTP/1.1",
		"Host: server.example.com",
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Key: "+sampleKey,
		"Sec-WebSocket-Version: 13",
	)
}

func TestComputeAcceptKeyRFCExample(t *testing.T) {
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", protocol.ComputeAcceptKey(sampleKey))
}

func TestParseHandshake(t *testing.T) {
	req := validRequest()
	hs, err := protocol.ParseHandshake([]byte(req + "\x81"))
	require.NoError(t, err)
	assert.Equal(t, "/chat", hs.Path)
	assert.Equal(t, sampleKey, hs.Key)
	assert.Equal(t, len(req), hs.Consumed)
}

func TestParseHandshakeTokenLists(t *testing.T) {
	req := upgradeRequest(
		"GET /a/b?x=1 HTTP/1.1",
		"connection: keep-alive, Upgrade",
		"UPGRADE: WebSocket",
		"sec-websocket-key: "+sampleKey,
	)
	hs, err := protocol.ParseHandshake([]byte(req))
	require.NoError(t, err)
	assert.Equal(t, "/a/b?x=1", hs.Path)
}

func TestParseHandshakeIncomplete(t *testing.T) {
	req := validRequest()
	for _, cut := range []int{0, 2, 10, len(req) - 1} {
		_, err := protocol.ParseHandshake([]byte(req[:cut]))
		assert.ErrorIs(t, err, protocol.ErrHandshakeIncomplete, "cut %d", cut)
	}
}

func TestParseHandshakeRejects(t *testing.T) {
	cases := map[string]struct {
		req string
		err error
	}{
		"not GET": {
			upgradeRequest("POST /chat HTTP/1.1", "Upgrade: websocket", "Connection: Upgrade", "Sec-WebSocket-Key: "+sampleKey),
			protocol.ErrBadRequestLine,
		},
		"no HTTP/1.1": {
			upgradeRequest("GET /chat HTTP/1.0", "Upgrade: websocket", "Connection: Upgrade", "Sec-WebSocket-Key: "+sampleKey),
			protocol.ErrBadRequestLine,
		},
		"no Connection": {
			upgradeRequest("GET /chat HTTP/1.1", "Upgrade: websocket", "Sec-WebSocket-Key: "+sampleKey),
			protocol.ErrInvalidUpgradeHeaders,
		},
		"no Upgrade": {
			upgradeRequest("GET /chat HTTP/1.1", "Connection: Upgrade", "Sec-WebSocket-Key: "+sampleKey),
			protocol.ErrInvalidUpgradeHeaders,
		},
		"no key": {
			upgradeRequest("GET /chat HTTP/1.1", "Upgrade: websocket", "Connection: Upgrade"),
			protocol.ErrMissingWebSocketKey,
		},
		"short key": {
			upgradeRequest("GET /chat HTTP/1.1", "Upgrade: websocket", "Connection: Upgrade", "Sec-WebSocket-Key: abc"),
			protocol.ErrBadWebSocketKey,
		},
		"no path": {
			upgradeRequest("GET  HTTP/1.1", "Upgrade: websocket", "Connection: Upgrade", "Sec-WebSocket-Key: "+sampleKey),
			protocol.ErrBadRequestLine,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := protocol.ParseHandshake([]byte(tc.req))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParseHandshakeTooLarge(t *testing.T) {
	req := "GET /x HTTP/1.1\r\nX-Pad: " + strings.Repeat("p", protocol.MaxHandshakeSize)
	_, err := protocol.ParseHandshake([]byte(req))
	assert.ErrorIs(t, err, protocol.ErrHandshakeTooLarge)
}

func TestAcceptResponse(t *testing.T) {
	resp := string(protocol.AcceptResponse(sampleKey))
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.Contains(t, resp, "Upgrade: websocket\r\n")
	assert.Contains(t, resp, "Connection: Upgrade\r\n")
	assert.Contains(t, resp, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\n"))
}
