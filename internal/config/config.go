package config

import (
	"fmt"
	"time"

	"github.com/dshills/posmap/internal/engine/history"
	"github.com/dshills/posmap/internal/engine/tracking"
	"github.com/dshills/posmap/internal/logging"
)

// Default Lua limits.
const (
	DefaultLuaInstructionLimit = 10_000_000
	DefaultLuaTimeout          = 5 * time.Second
)

// Config is the complete posmap configuration.
type Config struct {
	Log     LogConfig     `toml:"log"`
	History HistoryConfig `toml:"history"`
	Tracker TrackerConfig `toml:"tracker"`
	Lua     LuaConfig     `toml:"lua"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// HistoryConfig configures undo history.
type HistoryConfig struct {
	// MaxEntries bounds the undo stack.
	MaxEntries int `toml:"max_entries"`
}

// TrackerConfig configures the change tracker.
type TrackerConfig struct {
	MaxChanges   int `toml:"max_changes"`
	MaxRevisions int `toml:"max_revisions"`
}

// LuaConfig configures the Lua scripting sandbox.
type LuaConfig struct {
	// InstructionLimit caps VM instructions per execution. Zero disables it.
	InstructionLimit int64 `toml:"instruction_limit"`
	// Timeout bounds a single execution.
	Timeout Duration `toml:"timeout"`
}

// Duration is a time.Duration that reads and writes as a string such as "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		History: HistoryConfig{
			MaxEntries: history.DefaultMaxEntries,
		},
		Tracker: TrackerConfig{
			MaxChanges:   tracking.DefaultMaxChanges,
			MaxRevisions: tracking.DefaultMaxRevisions,
		},
		Lua: LuaConfig{
			InstructionLimit: DefaultLuaInstructionLimit,
			Timeout:          Duration{DefaultLuaTimeout},
		},
	}
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: log.level %q", ErrValidationFailed, c.Log.Level)
	}
	if c.History.MaxEntries < 1 {
		return fmt.Errorf("%w: history.max_entries must be positive, got %d", ErrValidationFailed, c.History.MaxEntries)
	}
	if c.Tracker.MaxChanges < 1 {
		return fmt.Errorf("%w: tracker.max_changes must be positive, got %d", ErrValidationFailed, c.Tracker.MaxChanges)
	}
	if c.Tracker.MaxRevisions < 1 {
		return fmt.Errorf("%w: tracker.max_revisions must be positive, got %d", ErrValidationFailed, c.Tracker.MaxRevisions)
	}
	if c.Lua.InstructionLimit < 0 {
		return fmt.Errorf("%w: lua.instruction_limit must not be negative, got %d", ErrValidationFailed, c.Lua.InstructionLimit)
	}
	if c.Lua.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: lua.timeout must be positive, got %s", ErrValidationFailed, c.Lua.Timeout)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// NewHistory creates an undo history sized by the configuration.
func (c *Config) NewHistory() *history.History {
	return history.New(c.History.MaxEntries)
}

// NewTracker creates a change tracker sized by the configuration.
func (c *Config) NewTracker() *tracking.Tracker {
	return tracking.NewTracker(
		tracking.WithMaxChanges(c.Tracker.MaxChanges),
		tracking.WithMaxRevisions(c.Tracker.MaxRevisions),
	)
}
