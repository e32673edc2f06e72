// internal/dex/jupiter/errors.go
package jupiter

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoRoute is returned when the aggregator cannot price the pair.
	ErrNoRoute = errors.New("no swap route")
	// ErrInvalidResponse is returned for payloads that do not parse.
	ErrInvalidResponse = errors.New("invalid jupiter response")
)

// APIError is a non-2xx response from the aggregator.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jupiter %s failed (%d): %s", e.Endpoint, e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
