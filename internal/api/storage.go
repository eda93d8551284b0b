package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/routes"
	"github.com/JaimeStill/concord/pkg/storage"
)

// blobHandler serves raw uploads straight from blob storage, for clients
// that hold a document's storage_key.
type blobHandler struct {
	blobs  storage.System
	logger *slog.Logger
}

func newBlobHandler(blobs storage.System, logger *slog.Logger) *blobHandler {
	return &blobHandler{blobs: blobs, logger: logger.With("handler", "storage")}
}

func (h *blobHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
		},
	}
}

func (h *blobHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := storage.ValidateKey(key); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	blob, err := h.blobs.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer blob.Close()

	name := path.Base(key)
	kind := mime.TypeByExtension(path.Ext(name))
	if kind == "" {
		kind = "application/octet-stream"
	}
	w.Header().Set("Content-Type", kind)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	if _, err := io.Copy(w, blob); err != nil {
		h.logger.Warn("download interrupted", "key", key, "error", err)
	}
}
