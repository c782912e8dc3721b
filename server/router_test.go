package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterRegisterAndResolve(t *testing.T) {
	r := NewRouter()
	echo := HandlerFuncs{Message: func(_ *Conn, msg []byte) []byte { return msg }}

	require.NoError(t, r.Register("/echo", echo))
	require.NoError(t, r.Register("/", HandlerFuncs{}))
	assert.ErrorIs(t, r.Register("/echo", echo), ErrRouteExists)
	assert.ErrorIs(t, r.Register("", echo), ErrInvalidRoute)
	assert.ErrorIs(t, r.Register("/nil", nil), ErrInvalidRoute)

	h, ok := r.Resolve("/echo")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), h.OnMessage(nil, []byte("x")))

	// Matching is exact.
	_, ok = r.Resolve("/echo/")
	assert.False(t, ok)
	_, ok = r.Resolve("/ECHO")
	assert.False(t, ok)

	assert.Equal(t, []string{"/", "/echo"}, r.Paths())
	assert.Equal(t, 2, r.Len())
}

func TestRouterSealed(t *testing.T) {
	r := NewRouter()
	r.seal()
	assert.ErrorIs(t, r.Register("/late", HandlerFuncs{}), ErrServerRunning)
}

func TestRouterManyRoutes(t *testing.T) {
	r := NewRouter()
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Register("/room/"+string(rune('a'+i%26))+string(rune('0'+i/26)), HandlerFuncs{}))
	}
	assert.Equal(t, 100, r.Len())
	_, ok := r.Resolve("/room/v3")
	assert.True(t, ok)
}

func TestHandlerFuncsNilFields(t *testing.T) {
	var h Handler = HandlerFuncs{}
	assert.NotPanics(t, func() {
		h.OnHandshake(nil)
		h.OnDisconnect(nil)
		assert.Nil(t, h.OnMessage(nil, []byte("ignored")))
	})
}
