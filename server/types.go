// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsreactor/control"
	"github.com/momentics/wsreactor/internal/transport"
	"github.com/momentics/wsreactor/pool"
	"github.com/momentics/wsreactor/reactor"
	"github.com/momentics/wsreactor/registry"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrServerClosed   = errors.New("server closed")
	ErrNotBound       = errors.New("server is not bound to a port")
	ErrAlreadyBound   = errors.New("server is already bound")
	ErrNoRoute        = errors.New("no handler registered for path")
	ErrConnClosed     = errors.New("connection is not open")
)

// Config holds all server-side configuration parameters.
type Config struct {
	MaxPayload   int // largest accepted frame payload; larger frames close with 1001
	MaxSendQueue int // pending outbound bytes per connection before closing with 1001
	MaxEvents    int // readiness events handled per wait
	Backlog      int // listen(2) backlog
	ReactorCPU   int // CPU to pin the reactor thread to, -1 = unpinned
	ReadBudget   int // reads per connection per readiness pass before yielding
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPayload:   1 << 20,
		MaxSendQueue: 4 << 20,
		MaxEvents:    32,
		Backlog:      transport.DefaultBacklog,
		ReactorCPU:   -1,
		ReadBudget:   16,
	}
}

// FromControl converts a process configuration into server parameters.
func FromControl(c *control.Config) Config {
	cfg := DefaultConfig()
	cfg.MaxPayload = c.MaxPayload
	cfg.MaxSendQueue = c.MaxSendQueue
	cfg.MaxEvents = c.MaxEvents
	cfg.ReactorCPU = c.ReactorCPU
	cfg.ReadBudget = c.ReadBudget
	return cfg
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MaxPayload <= 0 {
		c.MaxPayload = def.MaxPayload
	}
	if c.MaxSendQueue <= 0 {
		c.MaxSendQueue = def.MaxSendQueue
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = def.MaxEvents
	}
	if c.Backlog <= 0 {
		c.Backlog = def.Backlog
	}
	if c.ReadBudget <= 0 {
		c.ReadBudget = def.ReadBudget
	}
}

// Server owns the listening socket, the readiness facility, the connection
// registry and the router.
type Server struct {
	cfg       Config
	logger    *logrus.Logger
	metrics   *control.MetricsRegistry
	onConnect func(*Conn)

	poller   reactor.EventReactor
	listener *transport.Listener
	conns    *registry.Table[int, *Conn]
	router   *Router
	frames   *pool.BytePool
	ready    []*Conn // connections with unread input left over from a pass
	spare    []*Conn

	running      atomic.Bool
	stopping     atomic.Bool
	active       atomic.Int64
	teardownOnce sync.Once
}
