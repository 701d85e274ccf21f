package types

import (
	"fmt"
	"strings"
)

// ViewMode is the scalar dimension that drives region coloring and the legend.
type ViewMode string

const (
	ViewModeTemperature ViewMode = "temperature"
	ViewModeDensity     ViewMode = "density"
)

// ViewModes lists every supported mode.
var ViewModes = []ViewMode{ViewModeTemperature, ViewModeDensity}

// Validate returns an AppError when the mode is not supported.
func (m ViewMode) Validate() error {
	switch m {
	case ViewModeTemperature, ViewModeDensity:
		return nil
	}
	return NewAppErrorWithDetails(
		ErrCodeValidationInvalidViewMode,
		fmt.Sprintf("unsupported view mode %q", string(m)),
		nil,
		map[string]any{"allowed": ViewModes},
	)
}

// ParseViewMode parses a case-insensitive mode name.
func ParseViewMode(raw string) (ViewMode, error) {
	m := ViewMode(strings.ToLower(strings.TrimSpace(raw)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}
