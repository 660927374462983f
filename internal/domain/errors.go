package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by services and handlers. Repositories and services
// return these; the HTTP layer maps them to statuses and never forwards the
// underlying store error to the caller.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAccountDisabled = errors.New("account disabled")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
)

// ValidationError carries a caller-facing message for malformed input.
// All validation happens before any store mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
