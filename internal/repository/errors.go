package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no row matches the lookup, including
	// task rows that exist under a different owner.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// DuplicateError names the unique field that rejected a write.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}
