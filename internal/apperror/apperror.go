package apperror

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the application's error taxonomy. Every failure a
// service surfaces wraps exactly one of these, so handlers can map it to an
// HTTP status with errors.Is without inspecting strings.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream unavailable")
	ErrStorage    = errors.New("storage failure")
)

type AppError struct {
	Err     error  // one of the sentinel kinds above
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// AuthFailed covers missing, invalid, and expired credentials alike. The
// message is deliberately generic: a caller must not be able to tell an
// unknown email from a wrong password.
func AuthFailed(message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Upstream marks a failure of an external collaborator (geocoding,
// autocomplete). Surfaced as-is, never retried.
func Upstream(message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
}

// Storage wraps a database failure. The wrapped error stays in the chain for
// logs; the message shown to clients carries no internal detail.
func Storage(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrStorage, op, err),
		Message: "a storage error occurred",
	}
}
