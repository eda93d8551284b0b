package classifications

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/middleware"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
)

// Handler serves the /classifications endpoints: running the workflow on
// stored documents and reviewing the decisions it produced.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest is the body of POST /classifications/search.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "classifications"),
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/classifications",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/document/{id}", Handler: h.FindByDocument},
			{Method: "GET", Pattern: "/export", Handler: h.Export},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/batch", Handler: h.ClassifyBatch},
			{Method: "POST", Pattern: "/{documentId}", Handler: h.Classify},
			{Method: "POST", Pattern: "/{id}/validate", Handler: h.Validate},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List pages through decisions filtered by query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.sys.List(r.Context(), pagination.PageRequestFromQuery(q, h.pagination), FiltersFromQuery(q))
	h.respond(w, http.StatusOK, result, err)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "id"); ok {
		c, err := h.sys.Find(r.Context(), id)
		h.respond(w, http.StatusOK, c, err)
	}
}

// FindByDocument returns the decision for the document in {id}.
func (h *Handler) FindByDocument(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "id"); ok {
		c, err := h.sys.FindByDocument(r.Context(), id)
		h.respond(w, http.StatusOK, c, err)
	}
}

// Search is List with the page and filters in a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	h.respond(w, http.StatusOK, result, err)
}

// Classify runs the consensus workflow on {documentId} and stores the
// decision. The document moves to review.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "documentId"); ok {
		c, err := h.sys.Classify(r.Context(), id)
		h.respond(w, http.StatusCreated, c, err)
	}
}

// ClassifyBatch classifies every listed document. Failures are reported per
// document and the response is 200 whenever the body is well formed.
func (h *Handler) ClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var cmd BatchCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	if len(cmd.DocumentIDs) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, h.sys.ClassifyBatch(r.Context(), cmd.DocumentIDs))
}

// Export downloads every matching decision as one JSON array.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	decisions, err := h.sys.Export(r.Context(), FiltersFromQuery(r.URL.Query()))
	if err == nil {
		w.Header().Set("Content-Disposition", `attachment; filename="decisions.json"`)
	}
	h.respond(w, http.StatusOK, decisions, err)
}

// Validate accepts the stored label and completes the document.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	var cmd ValidateCommand
	if ok && h.decode(w, r, &cmd) {
		cmd.ValidatedBy = reviewer(r, cmd.ValidatedBy)
		c, err := h.sys.Validate(r.Context(), id, cmd)
		h.respond(w, http.StatusOK, c, err)
	}
}

// Update replaces the label and rationale and completes the document.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	var cmd UpdateCommand
	if ok && h.decode(w, r, &cmd) {
		cmd.UpdatedBy = reviewer(r, cmd.UpdatedBy)
		c, err := h.sys.Update(r.Context(), id, cmd)
		h.respond(w, http.StatusOK, c, err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reviewer prefers the authenticated identity over the name in the request
// body. Without authentication the body value is used as given.
func reviewer(r *http.Request, named string) string {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return named
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.Subject
}

// pathID parses the named path value. A malformed id is answered as 400
// not found.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, status, v)
}
