package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports missing, malformed, out-of-range or duplicate input.
// Message is the user-facing text.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Entity EntityType
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ErrInvalidCredentials is returned when a login does not match an account.
var ErrInvalidCredentials = errors.New("invalid username or password")

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
