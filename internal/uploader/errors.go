package uploader

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipped marks a record that was handled without a network call
	// (nothing to send, or uploads disabled). It is not a failure.
	ErrSkipped = errors.New("upload skipped")

	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrCircuitOpen      = errors.New("circuit breaker open")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid transport configuration")
)

// FailedPostError is returned when the server answered with a non-empty body,
// which the remote service uses to report application errors.
type FailedPostError struct {
	StatusCode int
	Body       string
}

func (e *FailedPostError) Error() string {
	return fmt.Sprintf("failed post (status %d): %s", e.StatusCode, e.Body)
}

// StatusError is returned for non-2xx responses with an empty body.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}
