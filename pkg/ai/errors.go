package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError carries the provider HTTP status so callers can decide whether a
// retry makes sense.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ai provider error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ai provider error (status %d)", e.Status)
}

// IsTransient reports whether the error is worth retrying: throttling,
// provider 5xx, or network-level failures. Context cancellation is never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
