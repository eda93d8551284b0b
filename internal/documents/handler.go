package documents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
)

// Handler serves the /documents endpoints: upload, listing and removal of
// the files queued for classification.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest is the body of POST /documents/search.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Upload},
			{Method: "POST", Pattern: "/batch", Handler: h.UploadBatch},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List pages through documents filtered by query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.sys.List(r.Context(), pagination.PageRequestFromQuery(q, h.pagination), FiltersFromQuery(q))
	h.respond(w, http.StatusOK, result, err)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r); ok {
		doc, err := h.sys.Find(r.Context(), id)
		h.respond(w, http.StatusOK, doc, err)
	}
}

// Search is List with the page and filters in a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	h.respond(w, http.StatusOK, result, err)
}

// Upload registers the single "file" part of a multipart form. PDF uploads
// get their page count recorded.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: expected one file part, got %d", ErrInvalidFile, len(files)))
		return
	}

	cmd, err := readUpload(files[0], h.maxUploadSize, h.logger)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	doc, err := h.sys.Create(r.Context(), cmd)
	h.respond(w, http.StatusCreated, doc, err)
}

// UploadBatch registers every "files" part of a multipart form. Files are
// handled independently and each outcome is reported in part order.
func (h *Handler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: no files part", ErrInvalidFile))
		return
	}

	results := make([]BatchResult, len(files))
	for i, fh := range files {
		results[i].Filename = fh.Filename

		cmd, err := readUpload(fh, h.maxUploadSize, h.logger)
		if err == nil {
			results[i].Document, err = h.sys.Create(r.Context(), cmd)
		}
		if err != nil {
			results[i].Error = err.Error()
			h.logger.Warn("batch item rejected", "filename", fh.Filename, "error", err)
		}
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseForm buffers up to maxUploadSize of the form in memory and spills
// the rest to disk. Per-file limits are enforced by readUpload.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidFile, err))
		return false
	}
	return true
}

// pathID parses {id}. A malformed id is answered as 400 not found.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, status, v)
}
