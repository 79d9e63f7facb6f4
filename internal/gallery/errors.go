package gallery

import "errors"

var (
	// ErrValidation marks a missing or malformed caller-supplied parameter.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates no record exists for the given id.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidState indicates the operation does not apply to the record's
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid lifecycle state")
)
