package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/posmap/internal/logging"
	"github.com/dshills/posmap/internal/watcher"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel())
	assert.Equal(t, DefaultLuaTimeout, cfg.Lua.Timeout.Duration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"zero history", func(c *Config) { c.History.MaxEntries = 0 }},
		{"zero changes", func(c *Config) { c.Tracker.MaxChanges = 0 }},
		{"zero revisions", func(c *Config) { c.Tracker.MaxRevisions = -1 }},
		{"negative instructions", func(c *Config) { c.Lua.InstructionLimit = -5 }},
		{"zero timeout", func(c *Config) { c.Lua.Timeout = Duration{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrValidationFailed)
		})
	}
}

func TestLoadFromReader(t *testing.T) {
	src := `
[log]
level = "debug"

[history]
max_entries = 50

[tracker]
max_changes = 200
max_revisions = 7

[lua]
instruction_limit = 1000
timeout = "250ms"
`
	cfg, err := LoadFromReader(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, logging.LevelDebug, cfg.LogLevel())
	assert.Equal(t, 50, cfg.History.MaxEntries)
	assert.Equal(t, 200, cfg.Tracker.MaxChanges)
	assert.Equal(t, 7, cfg.Tracker.MaxRevisions)
	assert.Equal(t, int64(1000), cfg.Lua.InstructionLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Lua.Timeout.Duration)
}

func TestLoadFromReaderPartialKeepsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("[history]\nmax_entries = 3\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.History.MaxEntries)
	assert.Equal(t, Default().Tracker, cfg.Tracker)
	assert.Equal(t, Default().Lua, cfg.Lua)
}

func TestLoadFromReaderUnknownKey(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("[log]\nlevel = \"info\"\ncolour = \"red\"\n"))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "<reader>", pe.Path)
	assert.Contains(t, pe.Message, "colour")
	assert.Greater(t, pe.Line, 0)
}

func TestLoadFromReaderSyntaxError(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("[log\nlevel = \"info\"\n"))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Greater(t, pe.Line, 0)
	assert.NotNil(t, errors.Unwrap(pe))
}

func TestLoadFromReaderBadDuration(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("[lua]\ntimeout = \"soon\"\n"))
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestLoadFromReaderInvalidValue(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("[history]\nmax_entries = 0\n"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().History, cfg.History)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posmap.toml")
	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_entries = 10\n[log]\nlevel = \"warn\"\n"), 0o644))

	t.Setenv("POSMAP_HISTORY_MAX_ENTRIES", "42")
	t.Setenv("POSMAP_LUA_TIMEOUT", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.History.MaxEntries)
	assert.Equal(t, time.Second, cfg.Lua.Timeout.Duration)
	assert.Equal(t, logging.LevelWarn, cfg.LogLevel())
}

func TestLoadParseErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("= nope"), 0o644))

	_, err := Load(path)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.Path)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POSMAP_LOG_LEVEL":             "error",
		"POSMAP_TRACKER_MAX_CHANGES":   "77",
		"POSMAP_TRACKER_MAX_REVISIONS": "5",
		"POSMAP_LUA_INSTRUCTION_LIMIT": "0",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 77, cfg.Tracker.MaxChanges)
	assert.Equal(t, 5, cfg.Tracker.MaxRevisions)
	assert.Equal(t, int64(0), cfg.Lua.InstructionLimit)
	assert.Equal(t, Default().History, cfg.History)
}

func TestApplyEnvInvalid(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "POSMAP_HISTORY_MAX_ENTRIES" {
			return "lots", true
		}
		return "", false
	}
	err := applyEnv(Default(), lookup)
	assert.ErrorIs(t, err, ErrInvalidEnv)
	assert.Contains(t, err.Error(), "POSMAP_HISTORY_MAX_ENTRIES")
}

func TestEnvVarsSorted(t *testing.T) {
	vars := EnvVars()
	assert.Contains(t, vars, "POSMAP_LOG_LEVEL")
	assert.IsNonDecreasing(t, vars)
}

func TestEncodeDecodes(t *testing.T) {
	cfg := Default()
	cfg.History.MaxEntries = 9
	cfg.Lua.Timeout = Duration{1500 * time.Millisecond}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))

	back, err := LoadFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestParseErrorFormat(t *testing.T) {
	assert.Equal(t, "parse error in a.toml at line 2, column 3: bad", (&ParseError{Path: "a.toml", Line: 2, Column: 3, Message: "bad"}).Error())
	assert.Equal(t, "parse error in a.toml at line 2: bad", (&ParseError{Path: "a.toml", Line: 2, Message: "bad"}).Error())
	assert.Equal(t, "parse error in a.toml: bad", (&ParseError{Path: "a.toml", Message: "bad"}).Error())
}

func TestConfigBuildsEngines(t *testing.T) {
	cfg := Default()
	cfg.History.MaxEntries = 2
	h := cfg.NewHistory()
	assert.Equal(t, 2, h.MaxEntries())
	assert.NotNil(t, cfg.NewTracker())
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posmap.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"info\"\n"), 0o644))

	reloaded := make(chan *Config, 4)
	failed := make(chan error, 4)
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		if err != nil {
			failed <- err
			return
		}
		reloaded <- cfg
	}, WithLogger(logging.Null()), WithFileWatcherOptions(watcher.WithDebounce(20*time.Millisecond)))
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "info", w.Current().Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "debug", w.Current().Log.Level)
	case err := <-failed:
		t.Fatalf("reload failed: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	require.NoError(t, os.WriteFile(path, []byte("[log\n"), 0o644))

	select {
	case err := <-failed:
		var pe *ParseError
		assert.True(t, errors.As(err, &pe))
		assert.Equal(t, "debug", w.Current().Log.Level)
	case <-reloaded:
		t.Fatal("expected a failed reload")
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}
