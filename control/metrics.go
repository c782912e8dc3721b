// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server counters and gauges, read from any goroutine.

package control

import (
	"maps"
	"sync"
	"time"
)

// MetricsRegistry stores named counters and gauges. The reactor writes,
// probes and the CLI read snapshots.
type MetricsRegistry struct {
	mu      sync.RWMutex
	values  map[string]any
	changed time.Time
}

// NewMetricsRegistry returns an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{values: make(map[string]any)}
}

// Set stores value under key, replacing what was there. Gauges use it.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.values[key] = value
	mr.changed = time.Now()
	mr.mu.Unlock()
}

// Inc adds delta to an integer counter, creating it at zero.
// A non-integer value under key is replaced.
func (mr *MetricsRegistry) Inc(key string, delta int64) {
	mr.mu.Lock()
	cur, _ := mr.values[key].(int64)
	mr.values[key] = cur + delta
	mr.changed = time.Now()
	mr.mu.Unlock()
}

// Counter returns the integer stored under key, or 0.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.values[key].(int64)
	return v
}

// Updated returns when any value last changed, zero if none has.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.changed
}

// GetSnapshot copies every value.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return maps.Clone(mr.values)
}
