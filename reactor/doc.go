// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexer driven by the server's
// single event loop: epoll on Linux, with an eventfd used to wake a blocked
// Wait from another goroutine.
package reactor
