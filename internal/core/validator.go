package core

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"heatwatch/internal/types"
)

// Validator checks decoded request bodies.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the "viewmode" tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("viewmode", func(fl validator.FieldLevel) bool {
		_, err := types.ParseViewMode(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// ValidateStruct returns nil or an AppError naming the first failing field.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fe := verrs[0]
	details := map[string]any{"field": fe.Field(), "rule": fe.Tag()}
	switch fe.Tag() {
	case "required":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, fe.Field()+" is required", err, details)
	case "viewmode":
		details["allowed"] = []types.ViewMode{types.ViewModeTemperature, types.ViewModeDensity}
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidViewMode, "unsupported view mode", err, details)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidJSON, fe.Field()+" is invalid", err, details)
	}
}
