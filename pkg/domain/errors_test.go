package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Classification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  string
	}{
		{"not found", NewNotFoundError("prospect"), IsNotFound, ErrCodeNotFound},
		{"validation", NewValidationError("bad"), IsValidation, ErrCodeValidation},
		{"conflict", NewConflictError("stale"), IsConflict, ErrCodeConflict},
		{"no result", NewNoResultError("no match"), IsNoResult, ErrCodeNoResult},
		{"timeout", NewTimeoutError("geocoding", errors.New("deadline")), IsUpstreamTimeout, ErrCodeUpstreamTimeout},
		{"upstream", NewUpstreamError("routing", errors.New("502")), IsUpstreamUnavailable, ErrCodeUpstreamUnavailable},
		{"upload", NewUploadError(errors.New("s3")), IsUploadFailed, ErrCodeUploadFailed},
		{"forbidden", NewForbiddenError("no"), IsForbidden, ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.code, GetErrorCode(tt.err))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped), "classification must survive wrapping")
		})
	}
}

func TestDomainError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamError("geocoding", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "geocoding is unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRateLimited_RetryAfter(t *testing.T) {
	err := fmt.Errorf("enrich: %w", NewRateLimitedError(30*time.Second))

	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 30*time.Second, GetRetryAfter(err))
	assert.Zero(t, GetRetryAfter(errors.New("plain")))
}

func TestGetErrorCode_NonDomain(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetErrorCode(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}
