// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection state owned by the reactor goroutine.

package server

import (
	"net/netip"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConnState is the lifecycle position of a connection.
type ConnState int

const (
	StateAccepted ConnState = iota // TCP accepted, handshake pending
	StateOpen                      // handshake done, frames flow
	StateClosed                    // resources released
)

func (s ConnState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	baseRecvSize = 128      // receive buffer size after the handshake
	readChunk    = 4096     // minimum free space offered to each read
	retainRecv   = 64 << 10 // larger idle buffers are returned to baseRecvSize
)

// Conn is one client connection. Its methods are safe to call from handler
// callbacks, which run on the reactor goroutine.
type Conn struct {
	id      string
	fd      int
	remote  netip.AddrPort
	state   ConnState
	path    string
	handler Handler
	log     *logrus.Entry

	recv        []byte
	readPending bool // queued on Server.ready after exhausting its read budget

	sendq      *queue.Queue // of *pending
	queued     int
	writeArmed bool
}

// pending is an outbound chunk not yet accepted by the socket. pooled is
// the full frame buffer to recycle once buf is written, nil if unpooled.
type pending struct {
	buf    []byte
	pooled []byte
}

func newConn(fd int, remote netip.AddrPort, logger *logrus.Logger) *Conn {
	c := &Conn{
		id:     uuid.NewString(),
		fd:     fd,
		remote: remote,
		state:  StateAccepted,
		sendq:  queue.New(),
	}
	c.log = logger.WithFields(logrus.Fields{
		"conn_id": c.id,
		"fd":      fd,
		"remote":  remote.String(),
	})
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// FD returns the socket descriptor.
func (c *Conn) FD() int { return c.fd }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() netip.AddrPort { return c.remote }

// Path returns the request path, empty before the handshake.
func (c *Conn) Path() string { return c.path }

// State returns the lifecycle state.
func (c *Conn) State() ConnState { return c.state }

// Logger returns an entry carrying the connection's fields.
func (c *Conn) Logger() *logrus.Entry { return c.log }

// readSpace returns free capacity at the end of the receive buffer. When
// less than readChunk bytes remain the buffer at least doubles.
func (c *Conn) readSpace() []byte {
	if cap(c.recv)-len(c.recv) < readChunk {
		c.reserve(max(len(c.recv)+readChunk, 2*cap(c.recv)))
	}
	return c.recv[len(c.recv):cap(c.recv)]
}

// reserve grows the receive buffer to hold at least n bytes in one step.
func (c *Conn) reserve(n int) {
	if cap(c.recv) >= n {
		return
	}
	grown := make([]byte, len(c.recv), n)
	copy(grown, c.recv)
	c.recv = grown
}

// consume drops the first n buffered bytes and shrinks an oversized buffer
// once the large frame it held has been processed.
func (c *Conn) consume(n int) {
	if n == 0 {
		return
	}
	rest := len(c.recv) - n
	if rest <= 0 {
		if cap(c.recv) > retainRecv {
			c.recv = make([]byte, 0, baseRecvSize)
		} else {
			c.recv = c.recv[:0]
		}
		return
	}
	if cap(c.recv) > retainRecv && rest <= retainRecv/2 {
		shrunk := make([]byte, rest, max(rest, baseRecvSize))
		copy(shrunk, c.recv[n:])
		c.recv = shrunk
		return
	}
	copy(c.recv, c.recv[n:])
	c.recv = c.recv[:rest]
}

// release drops buffers and queued output.
func (c *Conn) release() {
	c.state = StateClosed
	c.recv = nil
	c.sendq = nil
	c.queued = 0
	c.writeArmed = false
}
