package api

import (
	"net/http"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	blobs := newBlobHandler(runtime.Storage, runtime.Logger)

	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Classifications.Handler().Routes(),
		domain.Prompts.Handler().Routes(),
		blobs.routes(),
	)
}
