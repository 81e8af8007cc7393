package uploads

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoDocument indicates the upload request carried no valid file parts.
var ErrNoDocument = errors.New("no document provided")

// FailedError reports a batch upload that could not be fully persisted.
// By the time it is returned, every file the batch wrote has been removed
// (best effort), so failure is a clean end state.
type FailedError struct {
	OwnerID string
	Err     error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("failed to persist upload for owner %s: %v", e.OwnerID, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps upload errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNoDocument) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
