package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document operations.
var (
	ErrNotFound    = errors.New("document not found")
	ErrDuplicate   = errors.New("document already exists")
	ErrInvalidType = errors.New("invalid document type")
	ErrBlankField  = errors.New("required field is blank")
	ErrInvalidID   = errors.New("invalid document id")
)

// MapHTTPStatus maps document domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidType) || errors.Is(err, ErrBlankField) || errors.Is(err, ErrInvalidID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
