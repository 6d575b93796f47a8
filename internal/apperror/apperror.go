package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is returned both when a row does not exist and when it belongs to
// someone else, so callers cannot probe for other users' ids.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Unauthenticated covers a missing, malformed or expired session as well as
// bad credentials. HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
