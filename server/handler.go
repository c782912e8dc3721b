// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

// Handler is the callback bundle bound to a path.
type Handler interface {
	// OnHandshake runs once the connection is upgraded.
	OnHandshake(c *Conn)
	// OnDisconnect runs once after an open connection is torn down.
	OnDisconnect(c *Conn)
	// OnMessage receives a text payload and returns the text to send back.
	// A nil or empty result sends nothing. msg is reused after the call.
	OnMessage(c *Conn, msg []byte) []byte
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Handshake  func(c *Conn)
	Disconnect func(c *Conn)
	Message    func(c *Conn, msg []byte) []byte
}

func (h HandlerFuncs) OnHandshake(c *Conn) {
	if h.Handshake != nil {
		h.Handshake(c)
	}
}

func (h HandlerFuncs) OnDisconnect(c *Conn) {
	if h.Disconnect != nil {
		h.Disconnect(c)
	}
}

func (h HandlerFuncs) OnMessage(c *Conn, msg []byte) []byte {
	if h.Message == nil {
		return nil
	}
	return h.Message(c, msg)
}
