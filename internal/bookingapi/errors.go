package bookingapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned by GetBooking for a 404.
	ErrNotFound = errors.New("booking not found")
	// ErrAuthFailed is returned when /auth answers without a token.
	ErrAuthFailed = errors.New("authentication failed")
)

// APIError is a non-2xx answer from the booking API.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("booking api %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("booking api %s: status %d", e.Operation, e.StatusCode)
}

// NetworkError wraps transport failures (DNS, refused, timeout).
type NetworkError struct {
	Operation string
	URL       string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s to %s: %v", e.Operation, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err came from the transport rather than the API.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode extracts the HTTP status from an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return 0
}
