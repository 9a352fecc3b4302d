package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any non-success response from the GitLab API.
// Callers can use errors.As to inspect the status:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound { ... }
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(response *http.Response) *APIError {
	return &APIError{
		StatusCode: response.StatusCode,
		Message:    fmt.Sprintf("GitLab API error: %s", response.Status),
	}
}

// RateLimitError is returned once every retry attempt was answered with
// 429 Too Many Requests. It unwraps to an APIError with status 429.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: too many retries (%d attempts)", e.Attempts)
}

func (e *RateLimitError) Unwrap() error {
	return &APIError{StatusCode: http.StatusTooManyRequests, Message: e.Error()}
}

// IsStatus reports whether err is (or wraps) an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}
