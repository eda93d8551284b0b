package module

import (
	"net/http"
	"strings"
)

// Router selects a mounted Module by the first path segment. Paths no
// module claims (health checks, metrics) go to a plain ServeMux.
type Router struct {
	modules  map[string]*Module
	fallback *http.ServeMux
}

func NewRouter() *Router {
	return &Router{
		modules:  map[string]*Module{},
		fallback: http.NewServeMux(),
	}
}

// Mount claims m.Prefix() for m. A later module with the same prefix
// replaces the earlier one.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = m
}

// HandleNative registers pattern on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.fallback.HandleFunc(pattern, handler)
}

// ServeHTTP trims one trailing slash and dispatches on the first segment.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	if m, ok := r.modules["/"+segment]; ok {
		m.ServeHTTP(w, req)
		return
	}
	r.fallback.ServeHTTP(w, req)
}
