package types

import "fmt"

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Components use these constants instead of hardcoded
// strings so callers can branch on error class with errors.As.
const (
	// Validation
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"
	ErrCodeValidationReminderOffset ErrorCode = "validation_reminder_offset_out_of_range"
	ErrCodeValidationDuration       ErrorCode = "validation_duration_out_of_range"
	ErrCodeValidationProgress       ErrorCode = "validation_invalid_progress"
	ErrCodeValidationField          ErrorCode = "validation_invalid_field"

	// Not found
	ErrCodeNotFoundHearing      ErrorCode = "not_found_hearing"
	ErrCodeNotFoundCase         ErrorCode = "not_found_case"
	ErrCodeNotFoundNotification ErrorCode = "not_found_notification"

	// Internal/infrastructure
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"

	// Delivery
	ErrCodePushUnavailable ErrorCode = "push_channel_unavailable"
)

// AppError is the standard application error type used throughout the
// subsystem. Domain and repository errors are expressed as AppError to enable
// consistent classification and error chain support.
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

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain
// errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
