package api

import (
	"log/slog"

	"github.com/JaimeStill/concord/pkg/routes"
	"github.com/JaimeStill/concord/pkg/storage"
)

func BlobRoutes(blobs storage.System, logger *slog.Logger) routes.Group {
	return newBlobHandler(blobs, logger).routes()
}
