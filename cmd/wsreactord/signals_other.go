//go:build !linux

package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/momentics/wsreactor/control"
)

func dumpProbesOnSignal(ctx context.Context, _ *control.DebugProbes, _ *logrus.Logger) {
	<-ctx.Done()
}
