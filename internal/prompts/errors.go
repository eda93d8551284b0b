package prompts

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("prompt not found")
	ErrDuplicate    = errors.New("prompt name already exists")
	ErrInvalidStage = errors.New("stage must be evaluate, reconcile, or finalize")
	ErrInvalidInput = errors.New("name and instructions are required")
)

// MapHTTPStatus maps prompt errors to response codes. Unknown errors are
// 500.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStage), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
