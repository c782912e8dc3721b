package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/wsreactor/control"
)

// dumpProbesOnSignal logs the probe state on every SIGUSR1 until ctx is done.
func dumpProbesOnSignal(ctx context.Context, probes *control.DebugProbes, logger *logrus.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGUSR1)
	defer signal.Stop(sig)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			logger.WithFields(logrus.Fields(probes.DumpState())).Info("debug probes")
		}
	}
}
