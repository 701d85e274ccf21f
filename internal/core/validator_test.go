package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatwatch/internal/types"
)

func TestValidator(t *testing.T) {
	v := NewValidator()
	yes := true

	tests := []struct {
		name     string
		input    any
		wantCode types.ErrorCode
	}{
		{"valid mode", viewModeRequest{Mode: "density"}, ""},
		{"mixed case mode", viewModeRequest{Mode: "DENSITY"}, ""},
		{"bad mode", viewModeRequest{Mode: "wind"}, types.ErrCodeValidationInvalidViewMode},
		{"empty mode", viewModeRequest{}, types.ErrCodeValidationMissingField},
		{"heatmap set", heatmapRequest{Visible: &yes}, ""},
		{"heatmap missing", heatmapRequest{}, types.ErrCodeValidationMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.NotEmpty(t, appErr.Details["field"])
		})
	}
}
