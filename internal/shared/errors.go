package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication and session errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrNotAdmin       = fmt.Errorf("access denied: admin privileges required")
	ErrSessionExpired = fmt.Errorf("session expired")
	ErrNoSession      = fmt.Errorf("no active session")
	ErrMalformedToken = fmt.Errorf("malformed token")

	// Transport and API errors
	ErrNetwork            = fmt.Errorf("network error")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrParse              = fmt.Errorf("parse error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidAmount   = fmt.Errorf("invalid amount")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Persistence errors
	ErrNotFound = fmt.Errorf("record not found")
)
