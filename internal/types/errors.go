package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Handlers and provider clients MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidViewMode ErrorCode = "validation_invalid_view_mode"
	ErrCodeValidationUnknownRegion   ErrorCode = "validation_unknown_region"
	ErrCodeValidationMissingField    ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidJSON     ErrorCode = "validation_invalid_json"

	// Not Found (404)
	ErrCodeNotFoundRegion ErrorCode = "not_found_region"

	// Conflict (409)
	ErrCodeConflictSessionClosed ErrorCode = "conflict_session_closed"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected     ErrorCode = "internal_unexpected_error"
	ErrCodeGeometryUnavailable    ErrorCode = "upstream_geometry_unavailable"
	ErrCodeTemperatureUnavailable ErrorCode = "upstream_temperature_unavailable"
	ErrCodeUpstreamMalformed      ErrorCode = "upstream_malformed_response"
	ErrCodeUpstreamUnavailable    ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited    ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsProviderFailure reports whether the code describes a per-region provider
// failure. Such failures are absorbed by the pipeline and never fatal.
func (c ErrorCode) IsProviderFailure() bool {
	return strings.HasPrefix(string(c), "upstream_")
}

// AppError is the standard application error type used throughout the service.
// Provider clients, the session and HTTP handlers all express failures as
// AppError so that logging and HTTP mapping stay consistent.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// NewRegionError builds a provider failure for a single region. The region id
// is always carried in Details so log lines and API payloads can name it.
func NewRegionError(code ErrorCode, region RegionID, message string, err error) *AppError {
	return NewAppErrorWithDetails(code, message, err, map[string]any{
		"region": string(region),
	})
}
