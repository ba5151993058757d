// Package errors provides categorized errors that carry their HTTP status.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents malformed input (400)
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents authentication and role failures (401/403)
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents missing resources (404)
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryConflict represents duplicates and invalid state transitions
	CategoryConflict ErrorCategory = "conflict"
	// CategoryRateLimit represents throttled requests
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryUpstream represents failures of the clip worker
	CategoryUpstream ErrorCategory = "upstream"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategorySystem represents unexpected errors (5xx)
	CategorySystem ErrorCategory = "system"
)

// Stable error codes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeAlreadyStarted    = "ALREADY_STARTED"
	CodeNotStarted        = "NOT_STARTED"
	CodeInvalidState      = "INVALID_STATE"
	CodeAlreadyRunning    = "ALREADY_RUNNING"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeWorkerError       = "WORKER_ERROR"
	CodeWorkerUnavailable = "WORKER_UNAVAILABLE"
	CodeDatabase          = "DATABASE_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// User Input Errors (4xx)

// NewValidationError creates a validation error
func NewValidationError(message string, details map[string]interface{}) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    message,
		Details:    details,
	}
}

// NewInvalidParameterError creates an invalid query parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    "Invalid query parameters",
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
	}
}

// NewSessionExpiredError creates an error for a missing or expired session
func NewSessionExpiredError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeSessionExpired,
		Message:    message,
	}
}

// NewInvalidTokenError creates an error for a token that failed verification
func NewInvalidTokenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeInvalidToken,
		Message:    message,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    message,
	}
}

// NewConflictError creates a conflict error. Conflicts surface as 400 to
// keep parity with existing API clients.
func NewConflictError(code, message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusBadRequest,
		Code:       code,
		Message:    message,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		Message:    "Too many requests, please try again later",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// Upstream Errors

// NewWorkerError surfaces a non-2xx worker response with the worker's status
func NewWorkerError(statusCode int, message string) *CategorizedError {
	if statusCode < 400 || statusCode > 599 {
		statusCode = http.StatusBadGateway
	}
	if message == "" {
		message = "Worker rejected the request"
	}
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: statusCode,
		Code:       CodeWorkerError,
		Message:    message,
	}
}

// NewWorkerUnavailableError creates an error for an unreachable worker
func NewWorkerUnavailableError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusBadGateway,
		Code:       CodeWorkerUnavailable,
		Message:    "Worker service unavailable",
		Cause:      cause,
	}
}

// System Errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabase,
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("Internal server error", err)
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.Code == code
	}
	return false
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 500
}
