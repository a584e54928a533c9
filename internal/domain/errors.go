package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound covers unknown ids and cross-owner access attempts alike, so a
// caller cannot distinguish "does not exist" from "belongs to someone else".
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification was detected.
var ErrConflict = errors.New("conflict")

// ValidationError describes a business-rule violation in caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for the given field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
