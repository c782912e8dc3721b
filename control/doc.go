// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, runtime metrics and debug introspection for wsreactor.
//
// Provides concurrent-safe state handling primitives including:
//   - YAML configuration with defaults and validation
//   - A config store with reload listeners fed by an fsnotify file watcher
//   - Counter metrics updated by the reactor and read from any goroutine
//   - Named debug probes dumped on demand
package control
