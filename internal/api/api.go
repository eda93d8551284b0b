// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/infrastructure"
	"github.com/JaimeStill/concord/pkg/middleware"
	"github.com/JaimeStill/concord/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// When an OIDC issuer is configured every API route requires a bearer token.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Tracing("concord.api"))
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.API.Auth.Enabled() {
		verifier, err := middleware.NewOIDCVerifier(ctx, &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
		m.Use(middleware.Auth(verifier, cfg.API.Auth.PublicPaths, runtime.Logger))
	}

	return m, nil
}
