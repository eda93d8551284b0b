package main

import (
	"context"
	"net/http"
	"time"

	"github.com/JaimeStill/concord/internal/api"
	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/infrastructure"
	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(ctx context.Context, infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(ctx, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := infra.Ready(ctx); err != nil {
			infra.Logger.Warn("readiness check failed", "error", err)
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	metrics := infra.Telemetry.Handler()
	router.HandleNative("GET "+infra.Telemetry.MetricsPath(), metrics.ServeHTTP)

	return router
}
