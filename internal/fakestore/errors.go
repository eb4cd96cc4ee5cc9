package fakestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tidwall/gjson"
)

// User-facing messages, chosen by a fixed priority ladder:
// timeout > network > not-found > server > bad-request > forbidden >
// rate-limited > generic.
const (
	msgTimeout     = "Request timed out. Please try again."
	msgNetwork     = "Network error. Please check your connection."
	msgNotFound    = "The requested resource was not found."
	msgServer      = "Server error. Please try again later."
	msgBadRequest  = "Invalid request. Please try again."
	msgForbidden   = "You don't have permission to access this resource."
	msgRateLimited = "Too many requests. Please slow down."
	msgUnexpected  = "An unexpected error occurred"
)

// APIError is the classified form of every catalog API failure.
// Exactly one of the transport flags (IsNetworkError, IsTimeout) is set
// for transport failures; status-based flags are set from the HTTP code.
type APIError struct {
	// Message is human-readable and safe to surface in a UI.
	Message string `json:"message"`

	// Status is the HTTP status code, zero when no response was received.
	Status int `json:"status,omitempty"`

	IsNetworkError bool `json:"is_network_error"`
	IsTimeout      bool `json:"is_timeout"`
	IsServerError  bool `json:"is_server_error"`
	IsNotFound     bool `json:"is_not_found"`

	// Err is the underlying cause, kept for logs, never shown to users.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog api: %s (status %d)", e.Message, e.Status)
	}
	return "catalog api: " + e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage returns the UI-safe message. Callers that must not depend
// on this package can reach it through an anonymous interface.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Transient reports whether a retry has a chance of succeeding:
// network failures, client-side timeouts and 5xx responses.
func (e *APIError) Transient() bool {
	return e.IsNetworkError || e.IsTimeout || e.IsServerError
}

// classifyTransport converts a transport-level failure (no HTTP response)
// into an APIError.
func classifyTransport(err error) *APIError {
	apiErr := &APIError{Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		apiErr.IsTimeout = true
		apiErr.Message = msgTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		apiErr.IsTimeout = true
		apiErr.Message = msgTimeout
	default:
		apiErr.IsNetworkError = true
		apiErr.Message = msgNetwork
	}
	return apiErr
}

// classifyStatus converts a non-2xx HTTP response into an APIError.
// When the body carries a JSON error payload, its message wins over the
// ladder text.
func classifyStatus(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:        status,
		IsServerError: status >= http.StatusInternalServerError,
		IsNotFound:    status == http.StatusNotFound,
	}

	switch {
	case apiErr.IsNotFound:
		apiErr.Message = msgNotFound
	case apiErr.IsServerError:
		apiErr.Message = msgServer
	case status == http.StatusBadRequest:
		apiErr.Message = msgBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		apiErr.Message = msgForbidden
	case status == http.StatusTooManyRequests:
		apiErr.Message = msgRateLimited
	default:
		apiErr.Message = msgUnexpected
	}

	if msg := serverMessage(body); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

// serverMessage pulls a human-readable message out of a JSON error body,
// checking the field names seen in the wild.
func serverMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// ErrorMessage extracts a user-facing message from any error returned by
// this package. Callers at the UI boundary use this instead of Error().
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return msgUnexpected
}
