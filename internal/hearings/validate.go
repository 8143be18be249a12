// Package hearings implements the hearing lifecycle: validation of incoming
// hearing data and the orchestrator that reacts to create, update, and delete
// events by re-planning scheduled jobs and dispatching lifecycle
// notifications.
package hearings

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"counseldesk/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateHearing checks a hearing against the domain bounds and returns a
// typed AppError naming the first offending field. Valid input returns nil.
func ValidateHearing(h *types.Hearing) error {
	if h == nil {
		return types.NewAppError(types.ErrCodeValidationMissingField, "hearing is required", nil)
	}

	err := validate.Struct(h)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "hearing validation failed", err)
	}

	fe := verrs[0]
	appErr := fieldError(fe)
	return appErr.WithDetails(map[string]any{
		"field": fe.Field(),
		"rule":  fe.Tag(),
	})
}

// fieldError maps a single validator failure onto the error taxonomy.
func fieldError(fe validator.FieldError) *types.AppError {
	switch fe.Field() {
	case "ReminderOffsetMinutes":
		return types.NewAppError(types.ErrCodeValidationReminderOffset,
			fmt.Sprintf("reminder offset must be between 0 and %d minutes", types.MaxReminderOffsetMinutes), nil)
	case "DurationMinutes":
		return types.NewAppError(types.ErrCodeValidationDuration,
			fmt.Sprintf("duration must be between %d and %d minutes", types.MinDurationMinutes, types.MaxDurationMinutes), nil)
	case "Progress":
		return types.NewAppError(types.ErrCodeValidationProgress,
			"progress must be one of scheduled, adjourned, completed, cancelled", nil)
	}

	if fe.Tag() == "required" {
		return types.NewAppError(types.ErrCodeValidationMissingField,
			fmt.Sprintf("field %s is required", fe.Field()), nil)
	}
	return types.NewAppError(types.ErrCodeValidationField,
		fmt.Sprintf("field %s failed rule %s", fe.Field(), fe.Tag()), nil)
}
