// File: control/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named state reporters dumped into the log on demand (SIGUSR1 in the CLI).

package control

import (
	"os"
	"runtime"
	"sync"
)

// DebugProbes maps names to functions reporting a piece of live state.
type DebugProbes struct {
	mu      sync.RWMutex
	sources map[string]func() any
}

// NewDebugProbes returns an empty set.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{sources: make(map[string]func() any)}
}

// RegisterProbe adds or replaces the reporter called name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	dp.sources[name] = fn
	dp.mu.Unlock()
}

// DumpState calls every reporter and collects the results by name.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.sources))
	for name, fn := range dp.sources {
		out[name] = fn()
	}
	return out
}

// RegisterPlatformProbes adds process-level reporters.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.goroutines", func() any { return runtime.NumGoroutine() })
	dp.RegisterProbe("platform.pid", func() any { return os.Getpid() })
}
