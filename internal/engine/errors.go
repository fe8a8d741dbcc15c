package engine

import "errors"

// Typed failures surfaced to transport. repo.ErrNotFound covers absence and
// the cases where policy hides existence; everything unwrapped is internal.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
