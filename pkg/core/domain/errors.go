package domain

import "errors"

// Sentinel errors shared between the services and the repositories.
var (
	// ErrNotFound indicates the requested link does not exist.
	ErrNotFound = errors.New("link not found")

	// ErrCodeExists indicates the short code is already taken.
	ErrCodeExists = errors.New("short code already exists")

	// ErrExpired indicates the link exists but its expiry is in the past.
	ErrExpired = errors.New("link has expired")

	// ErrDeactivated indicates the link exists but was manually disabled.
	ErrDeactivated = errors.New("link has been deactivated")

	// ErrForbidden indicates the requester is not the owner of the link.
	ErrForbidden = errors.New("not allowed")

	// ErrQuotaExceeded indicates the guest origin reached its link limit.
	ErrQuotaExceeded = errors.New("guest link limit reached")

	// ErrEmailExists indicates a user with that email is already registered.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed input with a message safe to show
// to the client.
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
