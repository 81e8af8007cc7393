package filestore

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrEmptyName indicates an empty filename was provided.
	ErrEmptyName = errors.New("filename must not be empty")
	// ErrInvalidPath indicates a path outside the storage root or a
	// filename containing path separators.
	ErrInvalidPath = errors.New("path escapes storage root")
)

// MapHTTPStatus maps filestore errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyName) || errors.Is(err, ErrInvalidPath) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
