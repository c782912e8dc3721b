// File: cmd/wsreactord/command_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigDefaults(t *testing.T) {
	opts := &options{}
	cmd := newCommand(opts)
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := resolveConfig(cmd.Flags(), opts)
	require.NoError(t, err)
	assert.Equal(t, 21455, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wsreactor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\nlog_level: warn\nmax_events: 64\n"), 0o600))

	opts := &options{}
	cmd := newCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--log-level", "debug"}))
	cfg, err := resolveConfig(cmd.Flags(), opts)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 64, cfg.MaxEvents)
}

func TestResolveConfigRejectsBadFlags(t *testing.T) {
	opts := &options{}
	cmd := newCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--log-format", "xml"}))
	_, err := resolveConfig(cmd.Flags(), opts)
	assert.Error(t, err)

	opts = &options{}
	cmd = newCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
	_, err = resolveConfig(cmd.Flags(), opts)
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	opts := &options{}
	cmd := newCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "0", "--log-level", "debug"}))
	logger, hook := test.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cmd.Flags(), opts, logger) }()

	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "wsreactord started" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}
