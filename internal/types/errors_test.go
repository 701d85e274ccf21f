package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidViewMode,
		Message: "unsupported view mode",
	}

	expected := "validation_invalid_view_mode: unsupported view mode"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeTemperatureUnavailable, "weather fetch failed", underlying)

	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the wrapped error")
	}

	wrapped := fmt.Errorf("poll: %w", appErr)
	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeTemperatureUnavailable {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeTemperatureUnavailable)
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidViewMode, http.StatusBadRequest},
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeNotFoundRegion, http.StatusNotFound},
		{ErrCodeConflictSessionClosed, http.StatusConflict},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{ErrCodeGeometryUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamMalformed, http.StatusBadGateway},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorCodeIsProviderFailure(t *testing.T) {
	for _, code := range []ErrorCode{ErrCodeGeometryUnavailable, ErrCodeTemperatureUnavailable, ErrCodeUpstreamMalformed} {
		if !code.IsProviderFailure() {
			t.Errorf("%s should be a provider failure", code)
		}
	}
	if ErrCodeValidationUnknownRegion.IsProviderFailure() {
		t.Error("validation errors are not provider failures")
	}
}

func TestNewRegionErrorCarriesRegion(t *testing.T) {
	err := NewRegionError(ErrCodeGeometryUnavailable, "GO", "geometry missing", nil)

	if got := err.Details["region"]; got != "GO" {
		t.Errorf("Details[region] = %v, want GO", got)
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeUpstreamMalformed, "bad body", nil, map[string]any{"region": "SP"})

	extended := original.WithDetails(map[string]any{"status": 200})

	if _, ok := original.Details["status"]; ok {
		t.Error("WithDetails mutated the original error")
	}
	if extended.Details["region"] != "SP" || extended.Details["status"] != 200 {
		t.Errorf("merged details = %v", extended.Details)
	}
}
