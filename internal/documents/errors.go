package documents

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("document already exists")
	ErrFileTooLarge  = errors.New("file exceeds maximum upload size")
	ErrInvalidFile   = errors.New("invalid file")
	ErrExtractFailed = errors.New("text extraction failed")
)

// MapHTTPStatus maps document errors to response codes. Unknown errors
// are 500.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrExtractFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
