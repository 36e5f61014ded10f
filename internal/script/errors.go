package script

import "errors"

// Errors returned while parsing or running scripts.
var (
	// ErrEmptyScript is returned when a document holds no script.
	ErrEmptyScript = errors.New("empty script")

	// ErrInvalidStep is returned for a step that is malformed or names
	// more or less than one action.
	ErrInvalidStep = errors.New("invalid step")

	// ErrInvalidQuery is returned for a malformed query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownLabel is returned when a reference names no labeled step.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrDuplicateLabel is returned when two steps share a label.
	ErrDuplicateLabel = errors.New("duplicate label")
)
