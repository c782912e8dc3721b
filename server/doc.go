// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package server is the wsreactor embedding API: a single-goroutine epoll
// reactor that accepts TCP connections, performs the WebSocket handshake,
// decodes client frames and dispatches text messages to per-path handlers.
//
// A typical program creates a Server, binds a port, registers its paths and
// calls Run, which blocks until Shutdown or context cancellation:
//
//	srv, err := server.New(server.DefaultConfig())
//	...
//	srv.Bind(21455)
//	srv.RegisterPath("/echo", server.HandlerFuncs{
//		Message: func(c *server.Conn, msg []byte) []byte { return msg },
//	})
//	err = srv.Run(ctx)
//
// All handler callbacks run on the reactor goroutine. They must not block,
// and the message slice passed to OnMessage is only valid for the duration
// of the call.
package server
