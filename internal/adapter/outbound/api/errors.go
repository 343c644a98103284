package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnauthenticated is returned when the backend rejects the bearer
	// token (missing, expired, or revoked).
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the token is valid but the identity
	// lacks the role required for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrServerUnreachable is returned when the backend cannot be contacted.
	ErrServerUnreachable = errors.New("server unreachable")
)

// StatusError is returned for unexpected non-2xx responses.
type StatusError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Body is a truncated copy of the response body for diagnostics.
	Body string
}

// Error returns a human-readable description of the status failure.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Is reports whether this error matches the target error.
// 401 responses match ErrUnauthenticated; 403 responses match ErrForbidden.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.StatusCode == 401
	case ErrForbidden:
		return e.StatusCode == 403
	default:
		return false
	}
}

// ServerUnreachableError is returned when the backend cannot be contacted.
type ServerUnreachableError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error returns a human-readable description of the transport failure.
func (e *ServerUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *ServerUnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrServerUnreachable).
func (e *ServerUnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}
