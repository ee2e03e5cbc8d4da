package db

import "errors"

var (
	// ErrNotFound is returned when a referenced position, candidate or
	// attempt does not exist. Non-retriable.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an active contact attempt already exists
	// for a (position, candidate) pair. Callers must not retry blindly.
	ErrConflict = errors.New("active contact attempt already exists")
)
