// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps input that was rejected before anything was written.
	ErrValidation = errors.New("validation failed")
	// ErrBusinessRule wraps operations refused by a ledger rule.
	ErrBusinessRule = errors.New("operation not allowed")
	// ErrStorage wraps failures of the persistence backend.
	ErrStorage = errors.New("storage failure")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsUserFacing reports whether err carries a message meant for the user,
// either as a UserError or as a rejected validation or business rule.
func IsUserFacing(err error) bool {
	var userErr *UserError
	return errors.As(err, &userErr) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrBusinessRule) ||
		errors.Is(err, ErrNotFound)
}
