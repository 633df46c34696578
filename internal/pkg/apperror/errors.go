// Package apperror holds the sentinel errors services return and the HTTP layer maps to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
)

// Wrap attaches a human readable message to a sentinel while keeping errors.Is working.
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
