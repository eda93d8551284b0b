package main

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/infrastructure"
)

// Server owns the infrastructure, the mounted modules and the HTTP
// listener for one process.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

// NewServer builds infrastructure and modules. Nothing listens or connects
// until Start.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("infrastructure: %w", err)
	}

	modules, err := NewModules(ctx, infra, cfg)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info("server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start runs the startup hooks and begins serving. Readiness is logged
// once every subsystem has reported in.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()
	return nil
}

// Shutdown cancels the lifecycle context and waits up to timeout for the
// shutdown hooks.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("shutting down", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
