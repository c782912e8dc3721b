// File: internal/transport/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"errors"
	"net/netip"
)

// DefaultBacklog is the listen(2) backlog.
const DefaultBacklog = 32

var (
	// ErrWouldBlock reports that a non-blocking call has nothing to do right now.
	ErrWouldBlock = errors.New("operation would block")
	// ErrListenerClosed is returned by Accept after Close.
	ErrListenerClosed = errors.New("listener closed")
)

// Listener is a non-blocking IPv4 TCP listening socket.
type Listener struct {
	fd     int
	addr   netip.AddrPort
	closed bool
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Addr returns the bound address; the port is resolved when 0 was requested.
func (l *Listener) Addr() netip.AddrPort { return l.addr }
