// Package routes declares API endpoints as data so each domain handler can
// publish its table and the API module registers them in one place.
package routes

import "net/http"

// Route is one endpoint. Pattern is relative to the enclosing groups.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group shares Prefix across Routes and Children. Nested prefixes
// concatenate, so a child "/{id}" under "/documents" serves
// "/documents/{id}/...".
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux using Go 1.22 method patterns.
func Register(mux *http.ServeMux, groups ...Group) {
	var walk func(prefix string, g Group)
	walk = func(prefix string, g Group) {
		prefix += g.Prefix
		for _, r := range g.Routes {
			mux.HandleFunc(r.Method+" "+prefix+r.Pattern, r.Handler)
		}
		for _, child := range g.Children {
			walk(prefix, child)
		}
	}
	for _, g := range groups {
		walk("", g)
	}
}
