package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// DefaultErrorMessage is used when a failed response carries no message.
const DefaultErrorMessage = "Request failed"

// Sentinel errors matched by APIError and TransportError via errors.Is.
var (
	ErrUnauthorized = errors.New("httpclient: unauthorized")
	ErrForbidden    = errors.New("httpclient: forbidden")
	ErrNotFound     = errors.New("httpclient: not found")
	ErrTransport    = errors.New("httpclient: transport failure")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// TransportError wraps a failure to send a request or read its response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsRetryable reports whether a failed call may succeed when repeated:
// transport failures, 429 and 5xx responses. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return errors.Is(err, ErrTransport)
}
