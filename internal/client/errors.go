package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no token was available; no request was sent.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUnauthorized means the backend rejected the token (401/403).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork is a transport-level failure, including timeouts.
	ErrNetwork = errors.New("network error")
	// ErrServer is any other non-2xx response.
	ErrServer = errors.New("server error")
)

// Error describes a failed backend call. Kind is one of the sentinel errors
// above; Cause is the underlying transport or decode error, if any.
type Error struct {
	Method string
	Path   string
	Status int
	Body   string
	Kind   error
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == 404
}
