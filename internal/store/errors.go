package store

import "errors"

var (
	// ErrDuplicateUsername is returned when an insert trips the username
	// UNIQUE constraint.
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrNotFound is returned when an update or delete matched no rows.
	ErrNotFound = errors.New("record not found")
)
