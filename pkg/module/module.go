// Package module mounts self-contained HTTP surfaces (the classification
// API today) under single-segment prefixes of one listener.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/concord/pkg/middleware"
)

// Module serves an inner router beneath a prefix. The prefix is removed
// before the inner router sees the request, so route patterns stay
// relative ("GET /classifications/{id}").
type Module struct {
	prefix string
	inner  http.Handler
	stack  middleware.System
}

// New validates prefix and wraps inner. The prefix must be a single path
// segment with a leading slash, such as "/api".
func New(prefix string, inner http.Handler) (*Module, error) {
	if prefix == "" || prefix[0] != '/' || strings.Contains(prefix[1:], "/") || len(prefix) == 1 {
		return nil, fmt.Errorf("invalid module prefix %q: want a single segment like /api", prefix)
	}
	return &Module{prefix: prefix, inner: inner, stack: middleware.New()}, nil
}

// Prefix returns the mount point.
func (m *Module) Prefix() string { return m.prefix }

// Use appends mw to the module's stack. The first middleware added is the
// outermost.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.stack.Use(mw)
}

// ServeHTTP strips the prefix and dispatches through the middleware stack.
func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, m.prefix)
	if rest == "" {
		rest = "/"
	}

	inner := r.Clone(r.Context())
	inner.URL.Path = rest
	inner.URL.RawPath = ""
	m.stack.Apply(m.inner).ServeHTTP(w, inner)
}
