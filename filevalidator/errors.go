package filevalidator

import (
	"errors"
	"fmt"
)

// ValidationErrorType represents different types of validation errors
type ValidationErrorType string

const (
	ErrorTypeFormat    ValidationErrorType = "format"
	ErrorTypeSize      ValidationErrorType = "size"
	ErrorTypeDimension ValidationErrorType = "dimension"
	ErrorTypeSecurity  ValidationErrorType = "security"
	ErrorTypeCount     ValidationErrorType = "count"
	ErrorTypeFileName  ValidationErrorType = "filename"

	// Spreadsheet schema and row level types, shared with the bulk order engine.
	ErrorTypeSchema       ValidationErrorType = "schema"
	ErrorTypeField        ValidationErrorType = "field"
	ErrorTypeBusinessRule ValidationErrorType = "business_rule"
)

// ValidationError represents a custom error for file validation.
// It implements the error interface and includes the error type for programmatic handling.
type ValidationError struct {
	// Type categorizes the validation failure.
	Type ValidationErrorType `json:"type"`

	// Message is the human-readable error description.
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation error: %s", e.Type, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(errType ValidationErrorType, message string) *ValidationError {
	return &ValidationError{
		Type:    errType,
		Message: message,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsErrorOfType checks if an error is a ValidationError of the specified type
func IsErrorOfType(err error, errType ValidationErrorType) bool {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Type == errType
	}
	return false
}

// GetErrorType returns the type of a ValidationError, or empty string if not a ValidationError
func GetErrorType(err error) ValidationErrorType {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Type
	}
	return ""
}

// GetErrorMessage returns the message of a ValidationError, or empty string if not a ValidationError
func GetErrorMessage(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return ""
}

// Header decoding failures.
var (
	// ErrNoDimensions reports a format variant whose dimensions are not decoded
	// (WebP VP8L/VP8X, JPEG frames other than baseline or progressive).
	ErrNoDimensions = errors.New("dimensions not available for this format variant")

	// ErrCorruptHeader reports a header that is truncated or malformed.
	ErrCorruptHeader = errors.New("truncated or corrupt header")
)

// ErrUnknownPolicy is returned when no policy exists for an owner kind and category.
var ErrUnknownPolicy = errors.New("no upload policy for owner kind and category")
