package prompts

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/handlers"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
)

// Handler serves the /prompts endpoints used to inspect and override the
// instructions each workflow stage sends to its agent.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest is the body of POST /prompts/search.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// StageContent is the response type for stage-scoped content endpoints.
// Override is set on effective instructions when an active database prompt
// replaces the built-in default.
type StageContent struct {
	Stage    Stage  `json:"stage"`
	Content  string `json:"content"`
	Override *bool  `json:"override,omitempty"`
}

func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "prompts"),
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/prompts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/stages", Handler: h.Stages},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{stage}/instructions", Handler: h.Instructions},
			{Method: "GET", Pattern: "/{stage}/spec", Handler: h.Spec},
			{Method: "GET", Pattern: "/{stage}/default", Handler: h.Default},
			{Method: "GET", Pattern: "/{stage}/system", Handler: h.System},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/{id}/activate", Handler: h.Activate},
			{Method: "POST", Pattern: "/{id}/deactivate", Handler: h.Deactivate},
		},
	}
}

// List pages through prompts filtered by query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.sys.List(r.Context(), pagination.PageRequestFromQuery(q, h.pagination), FiltersFromQuery(q))
	h.respond(w, http.StatusOK, result, err)
}

func (h *Handler) Stages(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, Stages())
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r); ok {
		prompt, err := h.sys.Find(r.Context(), id)
		h.respond(w, http.StatusOK, prompt, err)
	}
}

// Instructions returns the instructions agents receive for a stage and
// whether an active override replaced the built-in text.
func (h *Handler) Instructions(w http.ResponseWriter, r *http.Request) {
	h.stageContent(w, r, func(ctx context.Context, stage Stage) (StageContent, error) {
		text, err := h.sys.Instructions(ctx, stage)
		if err != nil {
			return StageContent{}, err
		}
		builtin, err := Instructions(stage)
		if err != nil {
			return StageContent{}, err
		}
		override := text != builtin
		return StageContent{Stage: stage, Content: text, Override: &override}, nil
	})
}

// Default returns the built-in instructions, ignoring overrides.
func (h *Handler) Default(w http.ResponseWriter, r *http.Request) {
	h.stageContent(w, r, func(_ context.Context, stage Stage) (StageContent, error) {
		text, err := Instructions(stage)
		return StageContent{Stage: stage, Content: text}, err
	})
}

// System returns the composed system prompt: instructions plus the
// stage's output spec.
func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	h.stageContent(w, r, func(ctx context.Context, stage Stage) (StageContent, error) {
		text, err := Compose(ctx, h.sys, stage)
		return StageContent{Stage: stage, Content: text}, err
	})
}

// Spec returns the fixed output spec for a stage.
func (h *Handler) Spec(w http.ResponseWriter, r *http.Request) {
	h.stageContent(w, r, func(ctx context.Context, stage Stage) (StageContent, error) {
		text, err := h.sys.Spec(ctx, stage)
		return StageContent{Stage: stage, Content: text}, err
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if h.decode(w, r, &cmd) {
		prompt, err := h.sys.Create(r.Context(), cmd)
		h.respond(w, http.StatusCreated, prompt, err)
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	var cmd UpdateCommand
	if ok && h.decode(w, r, &cmd) {
		prompt, err := h.sys.Update(r.Context(), id, cmd)
		h.respond(w, http.StatusOK, prompt, err)
	}
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

// Activate makes the prompt its stage's override. Any prompt previously
// active for the stage is deactivated in the same transaction.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r); ok {
		prompt, err := h.sys.Activate(r.Context(), id)
		h.respond(w, http.StatusOK, prompt, err)
	}
}

// Deactivate returns the prompt's stage to its built-in instructions.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r); ok {
		prompt, err := h.sys.Deactivate(r.Context(), id)
		h.respond(w, http.StatusOK, prompt, err)
	}
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *Handler) stageContent(w http.ResponseWriter, r *http.Request, load func(context.Context, Stage) (StageContent, error)) {
	stage, err := ParseStage(r.PathValue("stage"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	content, err := load(r.Context(), stage)
	h.respond(w, http.StatusOK, content, err)
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, status, v)
}
