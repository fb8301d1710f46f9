// Package translation holds the types shared by every backend: the error
// taxonomy and the per-call options.
package translation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// NetworkError is a transport-level failure: connect, DNS, reset.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-success HTTP response from a backend.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string { return fmt.Sprintf("HTTP error %d: %s", e.Status, e.Body) }

type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string { return "authentication error: " + e.Reason }

type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "request timeout" }

// ServiceError means the backend answered at the transport level but returned
// no usable translation or a structured service-level error.
type ServiceError struct {
	Reason string
}

func (e *ServiceError) Error() string { return "service error: " + e.Reason }

type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Reason }

// MaxRetriesError is the terminal aggregate after the retry budget is spent on
// retryable failures. Errs holds every per-attempt error in order.
type MaxRetriesError struct {
	Attempts int
	Errs     []error
}

func (e *MaxRetriesError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "max retries exceeded after %d attempts", e.Attempts)
	for i, err := range e.Errs {
		fmt.Fprintf(&sb, "\n  attempt %d: %v", i+1, err)
	}
	return sb.String()
}

func (e *MaxRetriesError) Unwrap() []error { return e.Errs }

// Retryable reports whether err is transient and worth another attempt.
// Transport failures, timeouts, server-class (5xx) responses and rate-limit
// (429) responses are retryable; everything else is not.
func Retryable(err error) bool {
	var (
		netErr     *NetworkError
		httpErr    *HTTPError
		timeoutErr *TimeoutError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return true
	case errors.As(err, &netErr):
		return true
	case errors.As(err, &httpErr):
		return httpErr.Status >= 500 || httpErr.Status == http.StatusTooManyRequests
	}
	return false
}

// FromTransport classifies a raw error from the HTTP client. Classification
// happens once, here, and the result is never re-classified later.
func FromTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{}
	}
	return &NetworkError{Err: err}
}
