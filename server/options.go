// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsreactor/control"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the logger used for server and connection events.
func WithLogger(l *logrus.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records server counters into mr.
func WithMetrics(mr *control.MetricsRegistry) ServerOption {
	return func(s *Server) {
		if mr != nil {
			s.metrics = mr
		}
	}
}

// WithOnConnect installs a hook called right after a connection is
// accepted, before its handshake.
func WithOnConnect(fn func(*Conn)) ServerOption {
	return func(s *Server) {
		s.onConnect = fn
	}
}
