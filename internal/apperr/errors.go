// Package apperr defines the error taxonomy shared across the engine.
package apperr

import "errors"

var (
	// ErrValidation marks malformed caller input, rejected before storage is touched.
	ErrValidation = errors.New("invalid input")
	// ErrProtectedTag marks an attempt to rename a protected tag.
	ErrProtectedTag = errors.New("protected tag")
	// ErrNotFound marks an operation addressed to a nonexistent note or tag.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks an underlying read/write/index failure.
	ErrStorage = errors.New("storage failure")
)
