// Package apperr defines sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrNotFound signals that a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownAction signals that a caller requested a persistence
	// action the store does not implement. This is a programming error,
	// never a data error.
	ErrUnknownAction = errors.New("unknown database action")
)
