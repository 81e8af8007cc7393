package transfer

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ashford-digital/docvault/internal/documents"
)

// ErrNoContent indicates a transfer was requested over zero documents.
var ErrNoContent = errors.New("no content to transfer")

// StreamError reports a failure while producing a download stream.
type StreamError struct {
	OwnerID string
	Err     error
}

func (e *StreamError) Error() string {
	if e.OwnerID == "" {
		return fmt.Sprintf("stream failed: %v", e.Err)
	}
	return fmt.Sprintf("stream failed for owner %s: %v", e.OwnerID, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps transfer errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoContent):
		return http.StatusNoContent
	case errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
