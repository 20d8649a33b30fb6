// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"

	ErrCodeSessionLimitExceeded = "SESSION_LIMIT_EXCEEDED"
	ErrCodeSessionAlreadyExists = "SESSION_ALREADY_EXISTS"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired       = "SESSION_EXPIRED"
	ErrCodeAdapterInitFailed    = "ADAPTER_INIT_FAILED"
	ErrCodeAdapterUnavailable   = "ADAPTER_UNAVAILABLE"
	ErrCodeAdapterUnhealthy     = "ADAPTER_UNHEALTHY"
	ErrCodeInitTimeout          = "INIT_TIMEOUT"
	ErrCodeHealthCheckFailed    = "HEALTH_CHECK_FAILED"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeConflict,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusConflict,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewSessionLimitExceededError is returned when the registry is at capacity.
func NewSessionLimitExceededError(maxSessions int) *DomainError {
	return &DomainError{
		Code:       ErrCodeSessionLimitExceeded,
		Message:    "session limit exceeded",
		Details:    fmt.Sprintf("maximum of %d sessions reached", maxSessions),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewSessionAlreadyExistsError is returned when a session id is already taken.
func NewSessionAlreadyExistsError(sessionID string) *DomainError {
	return &DomainError{
		Code:       ErrCodeSessionAlreadyExists,
		Message:    "session already exists",
		Details:    sessionID,
		HTTPStatus: http.StatusConflict,
	}
}

// NewSessionNotFoundError is returned when a session does not exist.
func NewSessionNotFoundError(sessionID string) *DomainError {
	return &DomainError{
		Code:       ErrCodeSessionNotFound,
		Message:    "session not found",
		Details:    sessionID,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewSessionExpiredError is returned when a session exists but has expired.
func NewSessionExpiredError(sessionID string) *DomainError {
	return &DomainError{
		Code:       ErrCodeSessionExpired,
		Message:    "session expired",
		Details:    sessionID,
		HTTPStatus: http.StatusGone,
	}
}

// NewAdapterInitFailedError is returned once the initialization retry budget
// is exhausted. It carries the attempt count and the last underlying error.
func NewAdapterInitFailedError(attempts int, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeAdapterInitFailed,
		Message:    fmt.Sprintf("adapter initialization failed after %d attempts", attempts),
		Details:    details,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewAdapterUnavailableError is returned when an operation is requested before
// any successful initialization and none could be completed.
func NewAdapterUnavailableError(err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeAdapterUnavailable,
		Message:    "storage adapter is unavailable",
		Details:    details,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewAdapterUnhealthyError is returned when the adapter is degraded but
// operations may still be attempted.
func NewAdapterUnhealthyError(consecutiveFailures int) *DomainError {
	return &DomainError{
		Code:       ErrCodeAdapterUnhealthy,
		Message:    "storage adapter is unhealthy",
		Details:    fmt.Sprintf("%d consecutive health check failures", consecutiveFailures),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewInitTimeoutError is returned when a concurrent waiter exceeds the
// initialization poll budget.
func NewInitTimeoutError(waited string) *DomainError {
	return &DomainError{
		Code:       ErrCodeInitTimeout,
		Message:    "timed out waiting for adapter initialization",
		Details:    waited,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// NewHealthCheckFailedError is returned when a health check strategy fails.
func NewHealthCheckFailedError(strategy string, responseTime string, err error) *DomainError {
	details := fmt.Sprintf("strategy=%s responseTime=%s", strategy, responseTime)
	if err != nil {
		details = fmt.Sprintf("%s: %s", details, err.Error())
	}
	return &DomainError{
		Code:       ErrCodeHealthCheckFailed,
		Message:    "health check failed",
		Details:    details,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation string) *DomainError {
	return &DomainError{
		Code:       ErrCodeTimeout,
		Message:    fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(service string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeServiceUnavailable,
		Message:    fmt.Sprintf("%s is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// IsDomainError checks if the error is a domain error.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && (domainErr.Code == ErrCodeNotFound || domainErr.Code == ErrCodeSessionNotFound)
}

// IsCode checks if the error is a domain error with the given code.
func IsCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}

// IsSessionLimitExceeded checks if the error is a session limit error.
func IsSessionLimitExceeded(err error) bool {
	return IsCode(err, ErrCodeSessionLimitExceeded)
}

// IsAdapterInitFailed checks if the error is an initialization failure.
func IsAdapterInitFailed(err error) bool {
	return IsCode(err, ErrCodeAdapterInitFailed)
}

// IsInitTimeout checks if the error is an initialization timeout.
func IsInitTimeout(err error) bool {
	return IsCode(err, ErrCodeInitTimeout)
}
