package jira

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is the cause of every 401/403 answer from Jira.
var ErrUnauthorized = errors.New("jira rejected the credentials")

// APIError is a non-2xx answer from the Jira REST API.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Jira API error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("Jira API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the request may succeed when sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewAPIError creates a new APIError. Long bodies are truncated.
func NewAPIError(statusCode int, message string, err error) *APIError {
	const maxMessage = 512
	if len(message) > maxMessage {
		message = message[:maxMessage] + "..."
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}
