package engine

import (
	"github.com/dshills/posmap/internal/engine/history"
	"github.com/dshills/posmap/internal/engine/tracking"
)

// Default configuration values.
const (
	DefaultMaxUndoEntries = history.DefaultMaxEntries
	DefaultMaxChanges     = tracking.DefaultMaxChanges
	DefaultMaxRevisions   = tracking.DefaultMaxRevisions
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithCursors sets the initial selections.
func WithCursors(sels ...Selection) Option {
	return func(e *Engine) {
		e.initCursors = append([]Selection(nil), sels...)
	}
}

// WithMaxUndoEntries sets the maximum number of undo history entries.
func WithMaxUndoEntries(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxUndoEntries = max
		}
	}
}

// WithMaxChanges sets the maximum number of tracked changes.
func WithMaxChanges(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxChanges = max
		}
	}
}

// WithMaxRevisions sets the maximum number of stored revisions.
func WithMaxRevisions(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxRevisions = max
		}
	}
}

// WithReadOnly creates a read-only engine.
// Write operations will return ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Engine) {
		e.readOnly = true
	}
}
