// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	// ErrNotFound signals that the requested entity does not exist upstream.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals an optimistic-concurrency mismatch on update.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable signals that the upstream backend could not be reached.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrStale signals a range refresh superseded by a newer one.
	ErrStale = errors.New("stale refresh")
)
