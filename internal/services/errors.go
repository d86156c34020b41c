package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/earnx/internal/shared"
)

// sessionExpiredMessage is shown when the backend rejects an access token outright.
const sessionExpiredMessage = "Unauthorized - please login again"

// HTTPError is a non-2xx response. Message is the API error cause when the body carried one.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return shared.ErrAPIRequest }

// SessionExpiredError means the session can no longer produce a valid token.
// The shell must discard the session and return to the login flow.
type SessionExpiredError struct {
	Reason string
}

func (e *SessionExpiredError) Error() string {
	return "session expired: " + e.Reason
}

func (e *SessionExpiredError) Unwrap() error { return shared.ErrSessionExpired }

// NetworkError is a transport failure: DNS, TLS, connection reset or timeout.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() []error { return []error{shared.ErrNetwork, e.Err} }

// ParseError is a 2xx response whose body did not have the expected shape.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{shared.ErrParse, e.Err} }

// IsSessionExpired reports whether err ends the session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, shared.ErrSessionExpired)
}

// apiErrorBody is the error object the backend returns on failures.
type apiErrorBody struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Cause       string `json:"cause"`
}

// newHTTPError builds an [HTTPError], preferring the structured cause over the raw body text.
func newHTTPError(status int, body []byte) *HTTPError {
	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Cause != "" {
		return &HTTPError{Status: status, Message: apiErr.Cause}
	}
	return &HTTPError{Status: status, Message: strings.TrimSpace(string(body))}
}

// UserMessage renders err for a toast or inline form error.
func UserMessage(err error) string {
	var (
		httpErr    *HTTPError
		expiredErr *SessionExpiredError
		netErr     *NetworkError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &expiredErr):
		return expiredErr.Reason
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.As(err, &netErr):
		return netErr.Error()
	case errors.Is(err, shared.ErrNotAdmin):
		return "Access denied: Admin privileges required"
	default:
		return err.Error()
	}
}
