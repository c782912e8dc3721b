// File: cmd/wsreactord/main.go
// Package main
// wsreactord serves the demo WebSocket paths on a single epoll reactor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
