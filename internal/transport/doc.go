// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking socket primitives for the reactor: the listening socket
// (SO_REUSEADDR + SO_REUSEPORT), accept4, and read/write calls that report
// EAGAIN as ErrWouldBlock instead of parking a goroutine.

package transport
