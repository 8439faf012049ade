package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds, set on rate-limited responses
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WarningResponse wraps a successful payload that carries a non-fatal failure
// the author should see (e.g. notification delivery)
type WarningResponse struct {
	Data    any    `json:"data"`
	Warning string `json:"warning,omitempty"`
}
