package service

import (
	"errors"
	"fmt"

	"coursetutor/internal/storage"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a course, session or document does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a course belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrExternalService is returned when the model provider or vector index fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError reports which request field was rejected. It matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// storageError translates storage.ErrNotFound into ErrNotFound and wraps anything else.
func storageError(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return WrapError(err, msg)
}

// externalError marks err as a failure of a model or index dependency.
func externalError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrExternalService, err)
}
