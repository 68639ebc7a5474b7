package storage

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrUniqueViolation marks a write rejected by a uniqueness constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrObjectExists marks an insert-only object write that hit an existing path.
	ErrObjectExists = errors.New("object already exists")

	ErrUnauthorized = errors.New("unauthorized")
)
