// Package middleware holds the HTTP layers wrapped around the API module:
// CORS, OIDC bearer auth, request logging and tracing.
package middleware

import (
	"net/http"
	"slices"
)

// System is an ordered middleware stack. The first layer added is the
// outermost at request time.
type System interface {
	Use(mw func(http.Handler) http.Handler)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	layers []func(http.Handler) http.Handler
}

func New() System {
	return &stack{}
}

func (s *stack) Use(mw func(http.Handler) http.Handler) {
	s.layers = append(s.layers, mw)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(s.layers) {
		handler = mw(handler)
	}
	return handler
}
