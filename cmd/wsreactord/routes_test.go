package main

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoRoutes(t *testing.T) {
	logger, _ := test.NewNullLogger()
	routes := demoRoutes(logger)
	require.Len(t, routes, 2)

	root, ok := routes["/"]
	require.True(t, ok)
	assert.Equal(t, loremText, string(root.OnMessage(nil, []byte("anything"))))

	echo, ok := routes["/echo"]
	require.True(t, ok)
	assert.Equal(t, "ping me", string(echo.OnMessage(nil, []byte("ping me"))))
}
