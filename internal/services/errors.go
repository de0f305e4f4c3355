package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidToken           = errors.New("token is invalid or expired")
	ErrUserNotFound           = errors.New("user not found")
	ErrTaskNotFound           = errors.New("task not found")
)

// ValidationError rejects input before it reaches a store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
