package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing caller input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateIdentity is returned when a username or email is already registered.
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrNotFound is returned for absent records, and for tasks owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned by Login when the username is not registered.
	ErrUserNotFound = errors.New("username not registered")
	// ErrInvalidCredential indicates that the supplied password is incorrect.
	ErrInvalidCredential = errors.New("incorrect password")

	errTaskNotFound = fmt.Errorf("task %w", ErrNotFound)
	errUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
