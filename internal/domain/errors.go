// Package domain holds the error taxonomy shared by the aggregate packages.
package domain

import "errors"

var (
	// ErrNotFound marks a missing contract, annuity or party.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation rejected by the current state of an aggregate.
	ErrInvalidState = errors.New("invalid state")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState reports whether err wraps ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
