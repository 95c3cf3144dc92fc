package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Common backend errors.
var (
	// ErrUnauthorized is returned when the backend rejects the session assertion.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the actor lacks the backend-enforced role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the backend refuses a duplicate.
	ErrConflict = errors.New("conflict")
)

// Error is a non-2xx answer from the backend. Message is the server's own
// message, passed through unchanged.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto the sentinel errors
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// StatusCode extracts the HTTP status of a backend error, or 0
func StatusCode(err error) int {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}
	return 0
}
