// File: server/router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Path -> handler routing table. Populated before the reactor starts and
// read-only afterwards.

package server

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/registry"
)

var (
	ErrInvalidRoute  = errors.New("route needs a non-empty path and a handler")
	ErrRouteExists   = errors.New("route already registered")
	ErrServerRunning = errors.New("routes cannot change while the server runs")
)

// Router maps request paths to handlers. Paths match exactly.
type Router struct {
	routes *registry.Table[string, Handler]
	paths  []string
	sealed bool
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: registry.New[string, Handler](registry.StringHasher())}
}

// Register binds h to path.
func (r *Router) Register(path string, h Handler) error {
	if r.sealed {
		return ErrServerRunning
	}
	if path == "" || h == nil {
		return ErrInvalidRoute
	}
	if _, ok := r.routes.Get(path); ok {
		return errors.Wrap(ErrRouteExists, path)
	}
	r.routes.Put(path, h)
	r.paths = append(r.paths, path)
	sort.Strings(r.paths)
	return nil
}

// Resolve returns the handler registered for path.
func (r *Router) Resolve(path string) (Handler, bool) {
	h, ok := r.routes.Get(path)
	if !ok {
		return nil, false
	}
	return *h, true
}

// Paths lists registered paths in sorted order.
func (r *Router) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Len returns the number of routes.
func (r *Router) Len() int { return r.routes.Len() }

func (r *Router) seal() { r.sealed = true }

func (r *Router) destroy() {
	r.routes.Destroy(nil)
}
