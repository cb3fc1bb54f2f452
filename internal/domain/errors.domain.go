package domain

import "errors"

var (
	// ErrNotFound means a primary record is absent or structurally empty.
	// Single-entity reads return it as the typed "no value" outcome.
	ErrNotFound = errors.New("record not found")

	// ErrPreconditionFailed means an update or delete targeted an
	// identifier that does not currently exist. Kept distinct from
	// ErrNotFound so callers can present "cannot modify a deleted record"
	// separately from a plain missed read.
	ErrPreconditionFailed = errors.New("record does not exist, cannot modify")
)
