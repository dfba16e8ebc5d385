package trip

import (
	"errors"
	"fmt"
	"strings"
)

// User-facing validation messages.
const (
	MessageMissingFields = "Please fill in all fields before generating your travel plan."
	MessageDateOrder     = "Return date must be after departure date!"
)

// ValidationError reports invalid trip input. The pipeline never starts for
// a request that fails validation.
type ValidationError struct {
	// Fields names the offending inputs.
	Fields []string

	// Message is safe to show to the user.
	Message string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Fields:  []string{field},
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
