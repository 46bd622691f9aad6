package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// StoreErrorMessage describes record store read/write failures.
	StoreErrorMessage = "record store operation failed"
	// ModelErrorMessage describes chat model failures.
	ModelErrorMessage = "language model call failed"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapStore wraps a record store failure. A nil err stays nil.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, StoreErrorMessage)
}

// WrapModel wraps a chat model failure. A nil err stays nil.
func WrapModel(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, ModelErrorMessage)
}

// StatusOf returns the status carried by the first AppError in err's chain,
// or 500 when there is none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	return err != nil && StatusOf(err) == http.StatusNotFound
}
