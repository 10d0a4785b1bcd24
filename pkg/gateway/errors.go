package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by every error describing a missing entity
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for duplicate names
	ErrConflict = errors.New("conflict")

	// ErrInvalid is returned for requests the backend rejects as malformed
	ErrInvalid = errors.New("invalid request")

	// ErrPasswordRequired is returned when encrypted content is written or
	// read without a session password
	ErrPasswordRequired = errors.New("password required")

	// ErrInvalidPassword is returned when the session password does not
	// match the account
	ErrInvalidPassword = errors.New("invalid password")
)

// HTTPError is a non-2xx response from the backend
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrInvalid:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrInvalidPassword:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// TransportError wraps a failure to reach the backend at all
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err describes a missing entity
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport reports whether err is a connectivity or server-side failure
// rather than a rejection of the request itself
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 500 || he.StatusCode == http.StatusTooManyRequests
	}
	return false
}
