// internal/transport/transport_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux socket calls via golang.org/x/sys/unix.

package transport

import (
	"io"
	"net/netip"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Listen opens a non-blocking TCP socket on INADDR_ANY:port with
// SO_REUSEADDR and SO_REUSEPORT set, and starts listening.
func Listen(port, backlog int) (*Listener, error) {
	if port < 0 || port > 0xFFFF {
		return nil, errors.Errorf("invalid port %d", port)
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "socket create")
	}
	fail := func(err error, msg string) (*Listener, error) {
		unix.Close(fd)
		return nil, errors.Wrap(err, msg)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail(err, "set SO_REUSEADDR")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fail(err, "set SO_REUSEPORT")
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		return fail(err, "bind port")
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail(err, "listen")
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fail(err, "getsockname")
	}
	return &Listener{fd: fd, addr: toAddrPort(sa)}, nil
}

// Accept takes one pending connection. The returned descriptor is
// non-blocking. ErrWouldBlock means the backlog is drained.
func (l *Listener) Accept() (int, netip.AddrPort, error) {
	if l.closed {
		return -1, netip.AddrPort{}, ErrListenerClosed
	}
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return nfd, toAddrPort(sa), nil
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return -1, netip.AddrPort{}, ErrWouldBlock
		default:
			return -1, netip.AddrPort{}, errors.Wrap(err, "accept")
		}
	}
}

// Close closes the listening socket. Closing twice is a no-op.
func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Wrap(unix.Close(l.fd), "close listener")
}

// Read reads from a non-blocking descriptor. A zero-byte read is io.EOF.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, ErrWouldBlock
		case err != nil:
			return 0, errors.Wrap(err, "read")
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes as much of p as the socket accepts without blocking.
// A short count with ErrWouldBlock means the rest must wait for writability.
func Write(fd int, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.SendmsgN(fd, p[written:], nil, nil, unix.MSG_NOSIGNAL)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return written, ErrWouldBlock
		case err != nil:
			return written, errors.Wrap(err, "write")
		}
		written += n
	}
	return written, nil
}

// Close closes a connection descriptor.
func Close(fd int) error {
	return errors.Wrap(unix.Close(fd), "close")
}

// IsDisconnect reports whether err means the peer went away.
func IsDisconnect(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.ECONNRESET || errno == unix.EPIPE
	}
	return false
}

func toAddrPort(sa unix.Sockaddr) netip.AddrPort {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return netip.AddrPortFrom(netip.AddrFrom4(in4.Addr), uint16(in4.Port))
	}
	if in6, ok := sa.(*unix.SockaddrInet6); ok {
		return netip.AddrPortFrom(netip.AddrFrom16(in6.Addr), uint16(in6.Port))
	}
	return netip.AddrPort{}
}
