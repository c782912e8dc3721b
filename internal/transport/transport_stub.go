//go:build !linux
// +build !linux

// File: internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package transport

import (
	"errors"
	"io"
	"net/netip"
)

var errUnsupported = errors.New("transport: this platform is not supported")

// Listen returns an error for unsupported platforms.
func Listen(port, backlog int) (*Listener, error) { return nil, errUnsupported }

// Accept returns an error for unsupported platforms.
func (l *Listener) Accept() (int, netip.AddrPort, error) {
	return -1, netip.AddrPort{}, errUnsupported
}

// Close is a no-op on unsupported platforms.
func (l *Listener) Close() error { return nil }

// Read returns an error for unsupported platforms.
func Read(fd int, p []byte) (int, error) { return 0, errUnsupported }

// Write returns an error for unsupported platforms.
func Write(fd int, p []byte) (int, error) { return 0, errUnsupported }

// Close returns an error for unsupported platforms.
func Close(fd int) error { return errUnsupported }

// IsDisconnect reports whether err means the peer went away.
func IsDisconnect(err error) bool { return errors.Is(err, io.EOF) }
