// Package watcher reports changes to individual files using fsnotify.
//
// Files are watched through their parent directory so that editors which
// save by writing a temporary file and renaming it over the original are
// still observed. Rapid bursts of events on the same file are coalesced
// into one event after a debounce delay.
package watcher

import (
	"errors"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a change to a watched file.
type Event struct {
	// Path is the absolute path of the affected file.
	Path string

	// Op is the combined set of operations seen during the debounce window.
	Op Op

	// Timestamp is when the last coalesced operation occurred.
	Timestamp time.Time
}

// Config holds watcher settings.
type Config struct {
	// Debounce is the quiet period before an event is delivered.
	Debounce time.Duration

	// BufferSize is the capacity of the event and error channels.
	BufferSize int
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:   100 * time.Millisecond,
		BufferSize: 64,
	}
}

// Option configures a Watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay. Zero delivers events immediately.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Debounce = d
		}
	}
}

// WithBufferSize sets the event channel capacity.
func WithBufferSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}
