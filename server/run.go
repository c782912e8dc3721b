// File: server/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor loop: accept, handshake, frame dispatch, write-back and close.
// Everything here runs on the single reactor goroutine.

package server

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsreactor/affinity"
	"github.com/momentics/wsreactor/internal/transport"
	"github.com/momentics/wsreactor/protocol"
	"github.com/momentics/wsreactor/reactor"
)

const (
	connEvents    = reactor.EventRead | reactor.EventEdge
	connEventsOut = reactor.EventRead | reactor.EventWrite | reactor.EventEdge
)

// Run pins the reactor to its OS thread and processes readiness events
// until Shutdown is called or ctx is done. It tears the server down before
// returning.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		return ErrNotBound
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	if s.stopping.Load() {
		s.teardown()
		return ErrServerClosed
	}
	s.router.seal()

	release, err := affinity.PinCurrentThread(s.cfg.ReactorCPU)
	if err != nil {
		s.logger.WithError(err).WithField("cpu", s.cfg.ReactorCPU).Warn("reactor thread not pinned")
	}
	defer release()

	stop := context.AfterFunc(ctx, func() { _ = s.Shutdown() })
	defer stop()
	defer s.teardown()

	s.logger.WithFields(logrus.Fields{
		"addr":   s.Addr(),
		"routes": s.router.Paths(),
	}).Info("reactor started")

	events := make([]reactor.Event, s.cfg.MaxEvents)
	for !s.stopping.Load() {
		timeout := -1
		if len(s.ready) > 0 {
			timeout = 0
		}
		n, err := s.poller.Wait(events, timeout)
		if err != nil {
			s.logger.WithError(err).Error("reactor wait failed")
			s.stopping.Store(true)
			return err
		}
		for i := 0; i < n && !s.stopping.Load(); i++ {
			s.dispatch(events[i])
		}
		s.resumeReads()
	}
	return nil
}

// resumeReads continues connections whose last read pass ran out of budget.
// Edge-triggered readiness will not report them again until new data
// arrives, so they are carried between waits here.
func (s *Server) resumeReads() {
	if len(s.ready) == 0 {
		return
	}
	batch := s.ready
	s.ready = s.spare[:0]
	for _, c := range batch {
		if s.stopping.Load() {
			break
		}
		c.readPending = false
		if c.state != StateClosed {
			s.readable(c)
		}
	}
	clear(batch)
	s.spare = batch[:0]
}

// SendText sends msg to c as one text frame and returns the payload bytes
// accepted. It must be called from a handler callback. An empty msg sends
// nothing.
func (s *Server) SendText(c *Conn, msg []byte) (int, error) {
	if c.state != StateOpen {
		return 0, ErrConnClosed
	}
	if len(msg) == 0 {
		return 0, nil
	}
	if !s.sendFrame(c, protocol.OpcodeText, msg) {
		return 0, ErrConnClosed
	}
	return len(msg), nil
}

func (s *Server) dispatch(ev reactor.Event) {
	if ev.Has(reactor.EventWake) {
		return
	}
	if ev.Fd == s.listener.FD() {
		s.acceptAll()
		return
	}
	cp, ok := s.conns.Get(ev.Fd)
	if !ok {
		s.logger.WithField("fd", ev.Fd).Debug("event for unknown descriptor")
		return
	}
	c := *cp
	if ev.Mask&reactor.EventWrite != 0 && !s.flush(c) {
		return
	}
	if ev.Mask&(reactor.EventRead|reactor.EventHangup|reactor.EventError) != 0 {
		s.readable(c)
	}
}

func (s *Server) acceptAll() {
	for {
		fd, remote, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, transport.ErrWouldBlock) {
				s.logger.WithError(err).Warn("accept failed")
			}
			return
		}
		c := newConn(fd, remote, s.logger)
		if err := s.poller.Add(fd, connEvents); err != nil {
			c.log.WithError(err).Warn("registering connection failed")
			_ = transport.Close(fd)
			continue
		}
		s.conns.Put(fd, c)
		s.metrics.Set(MetricActive, s.active.Add(1))
		s.metrics.Inc(MetricAccepted, 1)
		c.log.Info("connection accepted")
		if s.onConnect != nil && !s.invoke(c, "connect", func() { s.onConnect(c) }) {
			s.drop(c)
		}
	}
}

// readable reads the socket until it would block, processing buffered
// input after every read. After ReadBudget reads the connection yields to
// the rest of the batch and is resumed after the next wait.
func (s *Server) readable(c *Conn) {
	for reads := 0; c.state != StateClosed; reads++ {
		if reads == s.cfg.ReadBudget {
			if !c.readPending {
				c.readPending = true
				s.ready = append(s.ready, c)
			}
			return
		}
		n, err := transport.Read(c.fd, c.readSpace())
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return
			}
			if transport.IsDisconnect(err) {
				c.log.Debug("peer disconnected")
			} else {
				c.log.WithError(err).Warn("read failed")
			}
			s.drop(c)
			return
		}
		c.recv = c.recv[:len(c.recv)+n]
		s.process(c)
	}
}

func (s *Server) process(c *Conn) {
	if c.state == StateAccepted && !s.handshake(c) {
		return
	}
	off := 0
	for c.state == StateOpen && off < len(c.recv) {
		f, n, err := protocol.DecodeFrame(c.recv[off:], s.cfg.MaxPayload)
		if errors.Is(err, protocol.ErrIncomplete) {
			break
		}
		if err != nil {
			code, ok := protocol.CloseCodeOf(err)
			if !ok {
				code = protocol.CloseProtocolError
			}
			if code == protocol.CloseNormalClosure {
				c.log.Debug("peer sent close")
			} else {
				c.log.WithError(err).Warn("protocol violation")
			}
			s.closeWith(c, code)
			return
		}
		off += n
		s.metrics.Inc(MetricFramesReceived, 1)

		switch f.Opcode {
		case protocol.OpcodePing:
			s.metrics.Inc(MetricPings, 1)
			if !s.sendFrame(c, protocol.OpcodePong, f.Payload) {
				return
			}
		case protocol.OpcodeText:
			var resp []byte
			if !s.invoke(c, "message", func() { resp = c.handler.OnMessage(c, f.Payload) }) {
				s.closeWith(c, protocol.CloseGoingAway)
				return
			}
			if c.state != StateOpen {
				return
			}
			if len(resp) > 0 && !s.sendFrame(c, protocol.OpcodeText, resp) {
				return
			}
		}
	}
	if c.state == StateOpen {
		c.consume(off)
		// Size the buffer for a partially received frame once its header is in.
		if h, err := protocol.ParseHeader(c.recv); err == nil && h.Length <= uint64(s.cfg.MaxPayload) {
			c.reserve(h.Size + int(h.Length) + readChunk)
		}
	}
}

// handshake upgrades an accepted connection once its request head is
// buffered. It reports whether the connection is open.
func (s *Server) handshake(c *Conn) bool {
	hs, err := protocol.ParseHandshake(c.recv)
	if errors.Is(err, protocol.ErrHandshakeIncomplete) {
		return false
	}
	var h Handler
	if err == nil {
		var ok bool
		if h, ok = s.router.Resolve(hs.Path); !ok {
			err = errors.Wrap(ErrNoRoute, hs.Path)
		}
	}
	if err != nil {
		c.log.WithError(err).Warn("handshake rejected")
		s.metrics.Inc(MetricHandshakeFailed, 1)
		s.drop(c)
		return false
	}

	if !s.send(c, protocol.AcceptResponse(hs.Key), false) {
		return false
	}
	c.state = StateOpen
	c.path = hs.Path
	c.handler = h
	c.log = c.log.WithField("path", hs.Path)
	c.consume(hs.Consumed)
	s.metrics.Inc(MetricOpen, 1)
	c.log.Info("connection upgraded")

	if !s.invoke(c, "handshake", func() { h.OnHandshake(c) }) {
		s.closeWith(c, protocol.CloseGoingAway)
		return false
	}
	return c.state == StateOpen
}

// invoke runs a handler callback and reports false if it panicked.
func (s *Server) invoke(c *Conn, callback string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithFields(logrus.Fields{"callback": callback, "panic": r}).Error("handler panicked")
			ok = false
		}
	}()
	fn()
	return true
}

// sendFrame encodes payload into a pooled buffer and sends it.
func (s *Server) sendFrame(c *Conn, opcode byte, payload []byte) bool {
	frame := s.frames.Get(protocol.HeaderLen(len(payload)) + len(payload))
	frame = protocol.AppendFrame(frame, opcode, payload)
	if !s.send(c, frame, true) {
		return false
	}
	s.metrics.Inc(MetricFramesSent, 1)
	return true
}

// send writes b, queueing whatever the socket does not take and arming
// write readiness. It reports false when the connection was torn down.
// b must not be reused by the caller; a pooled b is recycled once written.
func (s *Server) send(c *Conn, b []byte, pooled bool) bool {
	var owner []byte
	if pooled {
		owner = b
	}
	if c.sendq.Length() == 0 {
		n, err := transport.Write(c.fd, b)
		if err == nil {
			s.frames.Put(owner)
			return true
		}
		if !errors.Is(err, transport.ErrWouldBlock) {
			s.writeFailed(c, err)
			return false
		}
		b = b[n:]
	}
	if c.queued+len(b) > s.cfg.MaxSendQueue {
		c.log.WithField("queued", c.queued).Warn("send queue limit exceeded")
		s.closeWith(c, protocol.CloseGoingAway)
		return false
	}
	c.sendq.Add(&pending{buf: b, pooled: owner})
	c.queued += len(b)
	if !c.writeArmed {
		if err := s.poller.Modify(c.fd, connEventsOut); err != nil {
			c.log.WithError(err).Warn("arming write readiness failed")
			s.drop(c)
			return false
		}
		c.writeArmed = true
	}
	return true
}

// flush writes queued output on write readiness and disarms it once the
// queue is empty.
func (s *Server) flush(c *Conn) bool {
	if err := s.drainQueue(c); err != nil {
		s.writeFailed(c, err)
		return false
	}
	if c.sendq.Length() == 0 && c.writeArmed {
		if err := s.poller.Modify(c.fd, connEvents); err != nil {
			c.log.WithError(err).Warn("disarming write readiness failed")
			s.drop(c)
			return false
		}
		c.writeArmed = false
	}
	return true
}

func (s *Server) drainQueue(c *Conn) error {
	for c.sendq.Length() > 0 {
		p := c.sendq.Peek().(*pending)
		n, err := transport.Write(c.fd, p.buf)
		p.buf = p.buf[n:]
		c.queued -= n
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return nil
			}
			return err
		}
		c.sendq.Remove()
		s.frames.Put(p.pooled)
	}
	return nil
}

func (s *Server) writeFailed(c *Conn, err error) {
	if transport.IsDisconnect(err) {
		c.log.Debug("peer gone during write")
	} else {
		c.log.WithError(err).Warn("write failed")
	}
	s.drop(c)
}

// closeWith sends a close frame carrying code, if the connection is open,
// and tears it down.
func (s *Server) closeWith(c *Conn, code protocol.CloseCode) {
	if c.state == StateClosed {
		return
	}
	s.conns.Remove(c.fd)
	s.finalize(c, code, true)
}

// drop tears c down without a close frame.
func (s *Server) drop(c *Conn) {
	if c.state == StateClosed {
		return
	}
	s.conns.Remove(c.fd)
	s.finalize(c, 0, false)
}

// finalize releases everything c owns and runs OnDisconnect for open
// connections. c must already be out of the registry.
func (s *Server) finalize(c *Conn, code protocol.CloseCode, sendClose bool) {
	if c.state == StateClosed {
		return
	}
	wasOpen := c.state == StateOpen
	if sendClose && wasOpen {
		// A close frame may not interleave with a partially written frame.
		if s.drainQueue(c) == nil && c.sendq.Length() == 0 {
			if _, err := transport.Write(c.fd, protocol.AppendClose(nil, code)); err == nil {
				s.metrics.Inc(MetricFramesSent, 1)
			}
		}
		s.metrics.Inc(MetricClose(code), 1)
		c.log.WithField("code", uint16(code)).Debug("close frame sent")
	}
	_ = s.poller.Remove(c.fd)
	if err := transport.Close(c.fd); err != nil {
		c.log.WithError(err).Debug("closing socket")
	}
	c.release()
	s.metrics.Set(MetricActive, s.active.Add(-1))
	c.log.Info("connection closed")
	if wasOpen {
		s.metrics.Inc(MetricOpen, -1)
		s.invoke(c, "disconnect", func() { c.handler.OnDisconnect(c) })
	}
}
