//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "errors"

// ErrUnsupported is returned by New on platforms without epoll.
var ErrUnsupported = errors.New("reactor: this platform is not supported")

// New returns an error for unsupported platforms.
func New() (EventReactor, error) {
	return nil, ErrUnsupported
}
