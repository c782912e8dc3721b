// File: protocol/handshake.go
// Package protocol implements the server side of the WebSocket opening handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The request is parsed straight from the connection's receive buffer without
// net/http: one GET Upgrade request in, one fixed 101 response out.

package protocol

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"
)

// Constants used for handshake processing.
const (
	WebSocketGUID         = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection      = "connection"
	HeaderUpgrade         = "upgrade"
	HeaderSecWebSocketKey = "sec-websocket-key"
	ValueUpgrade          = "upgrade"
	ValueWebSocket        = "websocket"

	// MaxHandshakeSize bounds the request head, terminator included.
	MaxHandshakeSize = 1024
	// WebSocketKeyLen is the length of a base64-encoded 16-byte nonce.
	WebSocketKeyLen = 24
)

// Errors for handshake validation.
var (
	ErrHandshakeIncomplete   = errors.New("handshake request incomplete")
	ErrHandshakeTooLarge     = errors.New("handshake request too large")
	ErrBadRequestLine        = errors.New("request line is not GET <path> HTTP/1.1")
	ErrInvalidUpgradeHeaders = errors.New("invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = errors.New("missing Sec-WebSocket-Key header")
	ErrBadWebSocketKey       = errors.New("malformed Sec-WebSocket-Key header")
)

var (
	headTerminator = []byte("\r\n\r\n")
	crlf           = []byte("\r\n")
	methodGet      = []byte("GET ")
)

// Handshake is a validated upgrade request.
type Handshake struct {
	Path     string
	Key      string
	Consumed int // bytes of the request head, terminator included
}

// ParseHandshake validates the upgrade request at the start of buf.
// It returns ErrHandshakeIncomplete while the request head is still arriving.
// Bytes past Consumed belong to the first frame and are left to the caller.
func ParseHandshake(buf []byte) (*Handshake, error) {
	n := len(methodGet)
	if len(buf) < n {
		n = len(buf)
	}
	if !bytes.Equal(buf[:n], methodGet[:n]) {
		return nil, ErrBadRequestLine
	}

	end := bytes.Index(buf, headTerminator)
	if end < 0 {
		if len(buf) >= MaxHandshakeSize {
			return nil, ErrHandshakeTooLarge
		}
		return nil, ErrHandshakeIncomplete
	}
	consumed := end + len(headTerminator)
	if consumed > MaxHandshakeSize {
		return nil, ErrHandshakeTooLarge
	}

	head := buf[:end]
	lineEnd := bytes.Index(head, crlf)
	if lineEnd < 0 {
		lineEnd = len(head)
	}
	path, ok := parseRequestLine(head[:lineEnd])
	if !ok {
		return nil, ErrBadRequestLine
	}

	headers := parseHeaders(head[lineEnd:])
	if !containsToken(headers[HeaderConnection], ValueUpgrade) ||
		!containsToken(headers[HeaderUpgrade], ValueWebSocket) {
		return nil, ErrInvalidUpgradeHeaders
	}
	key, ok := headers[HeaderSecWebSocketKey]
	if !ok || key == "" {
		return nil, ErrMissingWebSocketKey
	}
	if !validKey(key) {
		return nil, ErrBadWebSocketKey
	}

	return &Handshake{Path: path, Key: key, Consumed: consumed}, nil
}

// parseRequestLine extracts the path from "GET <path> HTTP/1.1".
func parseRequestLine(line []byte) (string, bool) {
	rest := line[len(methodGet):]
	sp := bytes.IndexByte(rest, ' ')
	if sp <= 0 {
		return "", false
	}
	if !bytes.Contains(rest[sp+1:], []byte("HTTP/1.1")) {
		return "", false
	}
	return string(rest[:sp]), true
}

// parseHeaders maps lower-cased header names to their trimmed values.
// Repeated headers are joined with commas.
func parseHeaders(block []byte) map[string]string {
	headers := make(map[string]string, 8)
	for _, line := range bytes.Split(block, crlf) {
		sep := bytes.IndexByte(line, ':')
		if sep <= 0 {
			continue
		}
		name := strings.ToLower(string(bytes.TrimSpace(line[:sep])))
		value := string(bytes.TrimSpace(line[sep+1:]))
		if prev, ok := headers[name]; ok {
			value = prev + ", " + value
		}
		headers[name] = value
	}
	return headers
}

// containsToken checks if a comma-separated header value contains token (case-insensitive).
func containsToken(headerValue, token string) bool {
	for _, p := range strings.Split(headerValue, ",") {
		if strings.EqualFold(strings.TrimSpace(p), token) {
			return true
		}
	}
	return false
}

func validKey(key string) bool {
	if len(key) != WebSocketKeyLen {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	return err == nil && len(raw) == 16
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's key.
// This implements the algorithm specified in RFC6455 Section 1.3.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// AcceptResponse returns the 101 Switching Protocols response for clientKey.
func AcceptResponse(clientKey string) []byte {
	var sb strings.Builder
	sb.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	sb.WriteString("Upgrade: websocket\r\n")
	sb.WriteString("Connection: Upgrade\r\n")
	sb.WriteString("Sec-WebSocket-Accept: ")
	sb.WriteString(ComputeAcceptKey(clientKey))
	sb.WriteString("\r\n\r\n")
	return []byte(sb.String())
}
