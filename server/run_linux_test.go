//go:build linux

package server

import (
	"encoding/binary"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/wsreactor/control"
	"github.com/momentics/wsreactor/pool"
	"github.com/momentics/wsreactor/protocol"
)

// maskedText builds a client text frame with an all-zero mask key, so the
// payload bytes travel unchanged.
func maskedText(payload []byte) []byte {
	out := []byte{protocol.FinBit | protocol.OpcodeText}
	switch n := len(payload); {
	case n <= 125:
		out = append(out, protocol.MaskBit|byte(n))
	case n <= 0xFFFF:
		out = append(out, protocol.MaskBit|126)
		out = binary.BigEndian.AppendUint16(out, uint16(n))
	default:
		out = append(out, protocol.MaskBit|127)
		out = binary.BigEndian.AppendUint64(out, uint64(n))
	}
	out = append(out, 0, 0, 0, 0)
	return append(out, payload...)
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.normalize()
	logger, _ := test.NewNullLogger()
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: control.NewMetricsRegistry(),
		frames:  pool.NewBytePool(),
	}
}

// socketConn returns an open Conn on one end of a socket pair and the
// descriptor of the other end.
func socketConn(t *testing.T, h Handler) (*Conn, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	require.NoError(t, unix.SetNonblock(fds[0], true))
	c := newTestConn(t)
	c.fd = fds[0]
	c.state = StateOpen
	c.handler = h
	return c, fds[1]
}

func TestProcessReservesWholeFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPayload = 8 << 20
	s := newTestServer(t, cfg)
	c := newTestConn(t)
	c.state = StateOpen

	frame := maskedText(make([]byte, 4<<20))
	c.recv = append(c.recv, frame[:100]...)
	s.process(c)
	require.Len(t, c.recv, 100)
	assert.GreaterOrEqual(t, cap(c.recv), len(frame))

	assert.Zero(t, fillReads(c, len(frame)))
}

func TestReadableYieldsAfterBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReadBudget = 1
	s := newTestServer(t, cfg)

	var got []int
	c, peer := socketConn(t, HandlerFuncs{Message: func(_ *Conn, msg []byte) []byte {
		got = append(got, len(msg))
		return nil
	}})

	frame := maskedText(make([]byte, 10000))
	_, err := unix.Write(peer, frame)
	require.NoError(t, err)

	// The first read sees only part of the frame, then the budget is spent.
	s.readable(c)
	assert.Empty(t, got)
	require.Len(t, s.ready, 1)
	assert.True(t, c.readPending)

	for i := 0; i < 10 && len(s.ready) > 0; i++ {
		s.resumeReads()
	}
	assert.Empty(t, s.ready)
	assert.False(t, c.readPending)
	assert.Equal(t, []int{10000}, got)
	assert.Equal(t, int64(1), s.metrics.Counter(MetricFramesReceived))
}

func TestResumeReadsSkipsClosedConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReadBudget = 1
	s := newTestServer(t, cfg)
	c, _ := socketConn(t, HandlerFuncs{})

	c.readPending = true
	s.ready = append(s.ready, c)
	c.release()

	s.resumeReads()
	assert.Empty(t, s.ready)
	assert.False(t, c.readPending)
}
