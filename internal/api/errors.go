package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ppiankov/recebe/internal/record"
)

var (
	// ErrUnauthorized means the session token was rejected. Callers sign out.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the run or document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrRateLimited means the service asked the client to slow down
	ErrRateLimited = errors.New("rate limited")
	// ErrNoSession means no token is configured
	ErrNoSession = errors.New("no active session")
)

// APIError is a non-2xx response from the service
type APIError struct {
	StatusCode int
	Message    string // Server-provided message, may be empty
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps the status code onto the package sentinel errors
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

const genericFailure = "The request could not be completed. Try again later."

// UserMessage turns an error from the client into the banner shown to users
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNoSession):
		return "You are not signed in. Run 'recebe session login' first."
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Sign in again."
	case errors.Is(err, ErrNotFound):
		return "Document not found."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Wait before retrying."
	case errors.Is(err, context.DeadlineExceeded):
		return "The service did not respond in time."
	case errors.Is(err, record.ErrInvalidRun):
		return "The service returned a response this client does not understand."
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return genericFailure
	}
	return genericFailure
}

// IsUnauthorized reports whether err should end the session
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
