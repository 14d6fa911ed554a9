package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// User-facing messages stored in collection error state.
const (
	MsgNotAuthenticated = "Not authenticated"
	MsgTitleRequired    = "Title is required"
	MsgURLRequired      = "URL is required"

	MsgMissingCredentials = "Please enter both email and password."
	MsgInvalidCredentials = "Invalid Credentials"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthenticated is returned when an operation needs a token and none is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnauthorized is matched by a 401 response from the backend.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork wraps transport failures (DNS, refused connection, timeout).
	ErrNetwork = errors.New("network error")
	// ErrStorage wraps durable storage failures.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned by storage backends for a missing key.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by login on a 401.
	ErrInvalidCredentials = errors.New(MsgInvalidCredentials)
)

// ValidationError reports an invalid field detected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is makes a 401 match ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized is a shorthand for errors.Is(err, ErrUnauthorized).
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
