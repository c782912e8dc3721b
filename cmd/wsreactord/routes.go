// File: cmd/wsreactord/routes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Demo application paths.

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsreactor/server"
)

const loremText = "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Donec fringilla ligula ut magna congue dapibus. " +
	"Vestibulum ante ipsum primis in faucibus orci luctus et ultrices posuere cubilia curae; " +
	"Integer et consectetur mi. Nam feugiat, eros fringilla feugiat hendrerit, elit velit."

func demoRoutes(logger *logrus.Logger) map[string]server.Handler {
	lorem := []byte(loremText)
	connected := func(c *server.Conn) {
		c.Logger().Info("client joined")
	}
	left := func(c *server.Conn) {
		c.Logger().Info("client left")
	}
	logger.WithField("paths", []string{"/", "/echo"}).Debug("demo routes")
	return map[string]server.Handler{
		"/": server.HandlerFuncs{
			Handshake:  connected,
			Disconnect: left,
			Message:    func(*server.Conn, []byte) []byte { return lorem },
		},
		"/echo": server.HandlerFuncs{
			Handshake:  connected,
			Disconnect: left,
			Message:    func(_ *server.Conn, msg []byte) []byte { return msg },
		},
	}
}
