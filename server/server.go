// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server construction, binding, route registration and shutdown.

package server

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsreactor/control"
	"github.com/momentics/wsreactor/internal/transport"
	"github.com/momentics/wsreactor/pool"
	"github.com/momentics/wsreactor/protocol"
	"github.com/momentics/wsreactor/reactor"
	"github.com/momentics/wsreactor/registry"
)

// Metric keys recorded by the server.
const (
	MetricAccepted        = "connections_accepted"
	MetricOpen            = "connections_open"
	MetricHandshakeFailed = "handshakes_failed"
	MetricFramesReceived  = "frames_received"
	MetricFramesSent      = "frames_sent"
	MetricPings           = "pings"
	MetricActive          = "connections_active" // gauge
)

// MetricClose returns the counter key for closes with code.
func MetricClose(code protocol.CloseCode) string {
	return "close_" + strconv.Itoa(int(code))
}

// New creates the readiness facility and the empty connection and route
// registries. The server is not listening until Bind.
func New(cfg Config, opts ...ServerOption) (*Server, error) {
	cfg.normalize()
	s := &Server{
		cfg:     cfg,
		logger:  logrus.StandardLogger(),
		metrics: control.NewMetricsRegistry(),
		conns:   registry.New[int, *Conn](registry.IntHasher()),
		router:  NewRouter(),
		frames:  pool.NewBytePool(),
	}
	for _, opt := range opts {
		opt(s)
	}
	poller, err := reactor.New()
	if err != nil {
		return nil, errors.Wrap(err, "create reactor")
	}
	s.poller = poller
	return s, nil
}

// Bind opens the listening socket on port (0 picks a free port) and
// registers it with the reactor.
func (s *Server) Bind(port int) error {
	if s.stopping.Load() {
		return ErrServerClosed
	}
	if s.listener != nil {
		return ErrAlreadyBound
	}
	l, err := transport.Listen(port, s.cfg.Backlog)
	if err != nil {
		return err
	}
	if err := s.poller.Add(l.FD(), reactor.EventRead); err != nil {
		_ = l.Close()
		return errors.Wrap(err, "register listener")
	}
	s.listener = l
	s.logger.WithField("addr", l.Addr().String()).Info("listening")
	return nil
}

// Addr returns the bound address, or the zero value before Bind.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound port, or 0 before Bind.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return int(s.listener.Addr().Port())
}

// RegisterPath binds h to path. Paths must be registered before Run.
func (s *Server) RegisterPath(path string, h Handler) error {
	if s.running.Load() {
		return ErrServerRunning
	}
	if err := s.router.Register(path, h); err != nil {
		return err
	}
	s.logger.WithField("path", path).Debug("route registered")
	return nil
}

// RegisterPathFuncs is RegisterPath for three plain callbacks.
func (s *Server) RegisterPathFuncs(path string, onHandshake, onDisconnect func(*Conn), onMessage func(*Conn, []byte) []byte) error {
	return s.RegisterPath(path, HandlerFuncs{
		Handshake:  onHandshake,
		Disconnect: onDisconnect,
		Message:    onMessage,
	})
}

// Router exposes the routing table.
func (s *Server) Router() *Router { return s.router }

// Metrics returns the registry the server records into.
func (s *Server) Metrics() *control.MetricsRegistry { return s.metrics }

// ActiveConnections returns the number of tracked connections.
func (s *Server) ActiveConnections() int { return int(s.active.Load()) }

// RegisterProbes publishes server state on dp.
func (s *Server) RegisterProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("active_connections", func() any { return s.ActiveConnections() })
	dp.RegisterProbe("routes", func() any { return s.router.Paths() })
	dp.RegisterProbe("metrics", func() any { return s.metrics.GetSnapshot() })
	dp.RegisterProbe("metrics_updated", func() any { return s.metrics.Updated() })
}

// Shutdown stops the server. Open connections receive a 1001 close frame
// and their OnDisconnect callback, then every descriptor and registry is
// released. When Run is active the teardown happens on the reactor
// goroutine and Run returns afterwards. Safe to call more than once and
// from any goroutine.
func (s *Server) Shutdown() error {
	if !s.stopping.CompareAndSwap(false, true) {
		return nil
	}
	if s.running.Load() {
		return s.poller.Wake()
	}
	s.teardown()
	return nil
}

func (s *Server) teardown() {
	s.teardownOnce.Do(func() {
		s.conns.Destroy(func(_ int, cp **Conn) {
			s.finalize(*cp, protocol.CloseGoingAway, true)
		})
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				s.logger.WithError(err).Warn("closing listener")
			}
		}
		if err := s.poller.Close(); err != nil {
			s.logger.WithError(err).Warn("closing reactor")
		}
		s.router.destroy()
		s.logger.Info("server stopped")
	})
}
