package domain

import (
	"errors"
	"fmt"
	"time"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code       string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNoResult            = "NO_RESULT"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
	ErrCodeRateLimited         = "RATE_LIMITED"
)

// Error constructors

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(msg string) error {
	return &DomainError{
		Code:    ErrCodeBadRequest,
		Message: msg,
	}
}

// NewNoResultError reports that an upstream lookup returned nothing usable
func NewNoResultError(msg string) error {
	return &DomainError{
		Code:    ErrCodeNoResult,
		Message: msg,
	}
}

// NewUpstreamError reports an unreachable or misbehaving external service
func NewUpstreamError(service string, err error) error {
	return &DomainError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf("%s is unavailable", service),
		Err:     err,
	}
}

// NewTimeoutError reports an external call that exceeded its deadline
func NewTimeoutError(service string, err error) error {
	return &DomainError{
		Code:    ErrCodeUpstreamTimeout,
		Message: fmt.Sprintf("%s timed out", service),
		Err:     err,
	}
}

// NewUploadError reports a failed object upload
func NewUploadError(err error) error {
	return &DomainError{
		Code:    ErrCodeUploadFailed,
		Message: "File upload failed",
		Err:     err,
	}
}

// NewRateLimitedError carries the wait before a retry is allowed
func NewRateLimitedError(retryAfter time.Duration) error {
	return &DomainError{
		Code:       ErrCodeRateLimited,
		Message:    "Too many requests. Please try again later.",
		RetryAfter: retryAfter,
	}
}

// Helper functions to check error types

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return hasCode(err, ErrCodeInternal)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// IsBadRequest checks if the error is a bad request error
func IsBadRequest(err error) bool {
	return hasCode(err, ErrCodeBadRequest)
}

// IsNoResult checks if the error is a no result error
func IsNoResult(err error) bool {
	return hasCode(err, ErrCodeNoResult)
}

// IsUpstreamTimeout checks if the error is an upstream timeout
func IsUpstreamTimeout(err error) bool {
	return hasCode(err, ErrCodeUpstreamTimeout)
}

// IsUpstreamUnavailable checks if the error is an upstream failure
func IsUpstreamUnavailable(err error) bool {
	return hasCode(err, ErrCodeUpstreamUnavailable)
}

// IsUploadFailed checks if the error is an upload failure
func IsUploadFailed(err error) bool {
	return hasCode(err, ErrCodeUploadFailed)
}

// IsRateLimited checks if the error is a rate limit error
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// GetRetryAfter extracts the retry delay from a rate limit error
func GetRetryAfter(err error) time.Duration {
	var de *DomainError
	if errors.As(err, &de) {
		return de.RetryAfter
	}
	return 0
}
