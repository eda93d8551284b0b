package classifications

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/concord/internal/documents"
	"github.com/JaimeStill/concord/workflow"
)

// Domain errors for classification operations.
var (
	ErrNotFound      = errors.New("classification not found")
	ErrDuplicate     = errors.New("classification already exists")
	ErrInvalidStatus = errors.New("document is not in review status")
	ErrInvalidInput  = errors.New("invalid input")
)

// MapHTTPStatus maps classification domain errors to appropriate HTTP status codes.
// Errors surfaced from the documents domain and the workflow are mapped as well.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInvalidStatus):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrEmptyDocument), errors.Is(err, documents.ErrExtractFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrCapabilityFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
