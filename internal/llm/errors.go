package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupported is returned by providers that lack a capability,
	// such as completion on an embedding-only backend.
	ErrUnsupported = errors.New("operation not supported by provider")

	// ErrEmptyResponse is returned when a backend answers without content.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// StatusError is an HTTP-level failure reported by a backend.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
