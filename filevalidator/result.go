package filevalidator

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationResult contains detailed information about a validation attempt.
// Valid is true exactly when Errors is empty.
type ValidationResult struct {
	// Valid indicates whether the file passed all validations
	Valid bool `json:"isValid"`

	// Filename is the name of the validated file
	Filename string `json:"fileName,omitempty"`

	// Format is the container format detected from file content
	Format Format `json:"format"`

	// Dimensions is set when the container states its pixel geometry
	Dimensions *Dimensions `json:"dimensions,omitempty"`

	// DurationSeconds is set when a video container states its duration
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`

	// Size is the file size in bytes
	Size int64 `json:"fileSizeBytes"`

	// DeclaredMIME is the client-supplied content type (advisory)
	DeclaredMIME string `json:"declaredMime,omitempty"`

	// Errors contains all validation errors encountered
	Errors []ValidationError `json:"errors"`

	// Warnings contains non-blocking issues (e.g., high entropy, MIME mismatch)
	Warnings []string `json:"warnings"`

	// Duration is how long validation took
	Duration time.Duration `json:"-"`

	// Checks contains details about each validation check performed
	Checks []CheckResult `json:"-"`
}

// CheckResult represents the result of a single validation check
type CheckResult struct {
	Name    string        // e.g., "size", "format", "dimensions", "security"
	Passed  bool          // whether this check passed
	Message string        // human-readable result
	Details string        // additional details (optional)
	Took    time.Duration // how long this check took
}

// Error returns the first error if validation failed, nil if valid
func (r *ValidationResult) Error() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	return &r.Errors[0]
}

// AllErrors returns all errors as a single combined error
func (r *ValidationResult) AllErrors() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}

	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// HasErrorOfType reports whether any error has the given type.
func (r *ValidationResult) HasErrorOfType(t ValidationErrorType) bool {
	for _, e := range r.Errors {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the validation
func (r *ValidationResult) Summary() string {
	if r.Valid {
		detail := r.Format.String()
		if r.Dimensions != nil {
			detail += " " + r.Dimensions.String()
		}
		return fmt.Sprintf("✓ %s (%s, %s) validated in %v",
			r.Filename,
			detail,
			FormatSizeReadable(r.Size),
			r.Duration.Round(time.Microsecond),
		)
	}

	return fmt.Sprintf("✗ %s failed: %s",
		r.Filename,
		r.Errors[0].Message,
	)
}

// HasWarnings returns true if there are any warnings
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// FailedChecks returns only the checks that failed
func (r *ValidationResult) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, check := range r.Checks {
		if !check.Passed {
			failed = append(failed, check)
		}
	}
	return failed
}

// ResultBuilder helps construct ValidationResult. Errors and failing checks
// both clear Valid; nothing can set it back.
type ResultBuilder struct {
	result    ValidationResult
	startTime time.Time
}

// NewResultBuilder creates a new result builder
func NewResultBuilder(filename string, size int64) *ResultBuilder {
	return &ResultBuilder{
		result: ValidationResult{
			Valid:    true,
			Filename: filename,
			Size:     size,
			Errors:   []ValidationError{},
			Warnings: []string{},
			Checks:   make([]CheckResult, 0, 6),
		},
		startTime: time.Now(),
	}
}

// SetFormat sets the detected format
func (b *ResultBuilder) SetFormat(f Format) *ResultBuilder {
	b.result.Format = f
	return b
}

// SetDimensions records the declared geometry
func (b *ResultBuilder) SetDimensions(d Dimensions) *ResultBuilder {
	b.result.Dimensions = &d
	return b
}

// SetDuration records the declared duration in seconds
func (b *ResultBuilder) SetDuration(seconds float64) *ResultBuilder {
	b.result.DurationSeconds = &seconds
	return b
}

// SetDeclaredMIME sets the client-declared MIME type
func (b *ResultBuilder) SetDeclaredMIME(mime string) *ResultBuilder {
	b.result.DeclaredMIME = mime
	return b
}

// AddCheckWithDetails adds a check result with additional details
func (b *ResultBuilder) AddCheckWithDetails(name string, passed bool, message, details string, took time.Duration) *ResultBuilder {
	b.result.Checks = append(b.result.Checks, CheckResult{
		Name:    name,
		Passed:  passed,
		Message: message,
		Details: details,
		Took:    took,
	})
	return b
}

// AddError adds an error and marks result as invalid
func (b *ResultBuilder) AddError(errType ValidationErrorType, message string) *ResultBuilder {
	b.result.Valid = false
	b.result.Errors = append(b.result.Errors, ValidationError{
		Type:    errType,
		Message: message,
	})
	return b
}

// AddErrorf is AddError with formatting.
func (b *ResultBuilder) AddErrorf(errType ValidationErrorType, format string, args ...any) *ResultBuilder {
	return b.AddError(errType, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning (non-blocking)
func (b *ResultBuilder) AddWarning(message string) *ResultBuilder {
	b.result.Warnings = append(b.result.Warnings, message)
	return b
}

// merge folds a scan report into the result.
func (b *ResultBuilder) merge(report ScanReport) *ResultBuilder {
	for _, e := range report.Errors {
		b.AddError(e.Type, e.Message)
	}
	b.result.Warnings = append(b.result.Warnings, report.Warnings...)
	return b
}

// Build finalizes and returns the ValidationResult
func (b *ResultBuilder) Build() *ValidationResult {
	b.result.Duration = time.Since(b.startTime)
	b.result.Valid = len(b.result.Errors) == 0
	return &b.result
}

// QuickResult creates a simple pass/fail result without detailed checks.
// Errors that are not ValidationErrors are reported as format errors.
func QuickResult(filename string, size int64, err error) *ValidationResult {
	result := &ValidationResult{
		Valid:    err == nil,
		Filename: filename,
		Size:     size,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			result.Errors = append(result.Errors, *vErr)
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Type:    ErrorTypeFormat,
				Message: err.Error(),
			})
		}
	}
	return result
}
