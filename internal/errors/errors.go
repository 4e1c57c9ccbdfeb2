package errors

import (
	"errors"
	"net/http"
	"strings"
)

// APIError represents an error that crosses the HTTP boundary.
// Code is a stable machine readable string, never a localized message.
type APIError struct {
	Status       int    `json:"-"`
	Code         string `json:"error"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
	Internal     error  `json:"-"`
}

// Error returns the code, followed by the wrapped error if any
func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Code + ": " + e.Internal.Error()
	}
	return e.Code
}

// Unwrap returns the original error
func (e *APIError) Unwrap() error {
	return e.Internal
}

// New creates a new API error
func New(status int, code string, err error) *APIError {
	return &APIError{
		Status:   status,
		Code:     code,
		Internal: err,
	}
}

// Stable codes shared by more than one package.
const (
	CodeAuthRequired    = "AUTH_REQUIRED"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeDocumentIDEmpty = "DOCUMENT_ID_REQUIRED"
)

func BadRequest(code string, err error) *APIError {
	return New(http.StatusBadRequest, code, err)
}

func Unauthorized(code string, err error) *APIError {
	return New(http.StatusUnauthorized, code, err)
}

func Forbidden(code string, err error) *APIError {
	return New(http.StatusForbidden, code, err)
}

func NotFound(code string, err error) *APIError {
	return New(http.StatusNotFound, code, err)
}

func Conflict(code string, err error) *APIError {
	return New(http.StatusConflict, code, err)
}

// TooManyRequests carries the retry hint rendered in the response body.
func TooManyRequests(code string, retryAfterMs int64) *APIError {
	e := New(http.StatusTooManyRequests, code, nil)
	e.RetryAfterMs = retryAfterMs
	return e
}

func BadGateway(code string, err error) *APIError {
	return New(http.StatusBadGateway, code, err)
}

func GatewayTimeout(code string, err error) *APIError {
	return New(http.StatusGatewayTimeout, code, err)
}

// Internal wraps an unexpected error. An empty code falls back to INTERNAL_ERROR.
func Internal(code string, err error) *APIError {
	if code == "" {
		code = CodeInternal
	}
	return New(http.StatusInternalServerError, code, err)
}

// CodeError is a plain error whose message is a stable code, used below the
// HTTP layer (gateway, parsers) where no status is known yet.
type CodeError struct {
	Code string
}

func (e *CodeError) Error() string {
	return e.Code
}

// Code returns a CodeError for the given code.
func Code(code string) error {
	return &CodeError{Code: code}
}

// HasCode reports whether err carries the given code, either as an APIError,
// a CodeError or as a prefix of its message (e.g. "PROVIDER_KEY_MISSING:...").
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == code {
		return true
	}
	var codeErr *CodeError
	if errors.As(err, &codeErr) && strings.HasPrefix(codeErr.Code, code) {
		return true
	}
	return strings.Contains(err.Error(), code)
}

// As exposes the standard library helper so callers importing this package
// under the name "errors" don't need a second alias.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes the standard library helper.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
