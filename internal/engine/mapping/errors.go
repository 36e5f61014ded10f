package mapping

import "errors"

// Errors returned when constructing range maps from flat ranges.
var (
	// ErrRangesLength is returned when a flat range list is not made of triples.
	ErrRangesLength = errors.New("range list length must be a multiple of 3")

	// ErrNegativeRange is returned when a flat range list contains a negative value.
	ErrNegativeRange = errors.New("range values must be non-negative")
)
