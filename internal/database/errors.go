package database

import "errors"

// Error classes shared by the stores and the matcher. Callers test them with errors.Is;
// an error may belong to more than one class.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrCorruptRecord     = errors.New("corrupt record")
	ErrNoAuthorizedUsers = errors.New("no authorized users")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrIO                = errors.New("i/o error")
	ErrIDConflict        = errors.New("user id conflict")
)
