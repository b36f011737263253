package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error taxonomy for outbound API calls. Every failure that leaves the
// transport is one of these kinds, classified exactly once at the
// transport boundary.

// ConfigurationError means the request could never be sent: a bad base
// URL, an unencodable body, an invalid method.
type ConfigurationError struct {
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("request configuration: %v", e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

func NewConfigurationError(cause error) *ConfigurationError {
	return &ConfigurationError{Cause: cause}
}

// NetworkError means the request was sent but no response came back.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("no response from server: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

func NewNetworkError(cause error) *NetworkError {
	return &NetworkError{Cause: cause}
}

// AuthExpiredError means the session could not be recovered: the
// refresh token was missing, the refresh call failed, or a replayed
// request was rejected again.
type AuthExpiredError struct {
	Cause error
}

func (e *AuthExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session expired: %v", e.Cause)
	}
	return "session expired"
}

func (e *AuthExpiredError) Unwrap() error { return e.Cause }

func NewAuthExpiredError(cause error) *AuthExpiredError {
	return &AuthExpiredError{Cause: cause}
}

// APIErrorBody is the error payload shape the backend uses. Django
// REST framework answers with "detail" on most errors, "message" on a
// few custom views, and "errors" for field validation.
type APIErrorBody struct {
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Errors  json.RawMessage `json:"errors"`
}

// FirstMessage returns the most specific human-readable text present.
func (b APIErrorBody) FirstMessage() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Detail
}

// HTTPStatusError is a response received with a non-2xx status.
type HTTPStatusError struct {
	Status int
	Body   APIErrorBody
	Raw    []byte
}

func (e *HTTPStatusError) Error() string {
	if msg := e.Body.FirstMessage(); msg != "" {
		return fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	return fmt.Sprintf("error %d", e.Status)
}

func NewHTTPStatusError(status int, raw []byte) *HTTPStatusError {
	e := &HTTPStatusError{Status: status, Raw: raw}
	// Best effort: non-JSON bodies leave Body zero.
	_ = json.Unmarshal(raw, &e.Body)
	return e
}

// ValidationError is a 400/422 with a field-level breakdown when the
// server supplied one.
type ValidationError struct {
	HTTPStatusError
	Fields map[string][]string
}

func NewValidationError(status int, raw []byte) *ValidationError {
	e := &ValidationError{HTTPStatusError: *NewHTTPStatusError(status, raw)}
	if len(e.Body.Errors) > 0 {
		_ = json.Unmarshal(e.Body.Errors, &e.Fields)
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, msgs := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, ", ")))
		}
		return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
	}
	return e.HTTPStatusError.Error()
}

// StatusOf reports the HTTP status carried by err, or 0 when err is
// not a status error.
func StatusOf(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Status
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	return StatusOf(err) == status
}

// IsUnauthorized is a shorthand for the status the auth paths care about.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}
