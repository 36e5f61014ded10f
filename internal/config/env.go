package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POSMAP_"

type envSetter func(cfg *Config, value string) error

// envMapping maps environment variables to the settings they override.
var envMapping = map[string]envSetter{
	EnvPrefix + "LOG_LEVEL": func(cfg *Config, v string) error {
		cfg.Log.Level = v
		return nil
	},
	EnvPrefix + "HISTORY_MAX_ENTRIES": func(cfg *Config, v string) error {
		return setInt(&cfg.History.MaxEntries, v)
	},
	EnvPrefix + "TRACKER_MAX_CHANGES": func(cfg *Config, v string) error {
		return setInt(&cfg.Tracker.MaxChanges, v)
	},
	EnvPrefix + "TRACKER_MAX_REVISIONS": func(cfg *Config, v string) error {
		return setInt(&cfg.Tracker.MaxRevisions, v)
	},
	EnvPrefix + "LUA_INSTRUCTION_LIMIT": func(cfg *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		cfg.Lua.InstructionLimit = n
		return nil
	},
	EnvPrefix + "LUA_TIMEOUT": func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		cfg.Lua.Timeout = Duration{d}
		return nil
	},
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// EnvVars returns the recognized environment variable names in sorted order.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overrides cfg with any POSMAP_* variables set in the process
// environment. Empty values are treated as set.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, name := range EnvVars() {
		val, ok := lookup(name)
		if !ok {
			continue
		}
		if err := envMapping[name](cfg, val); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, name, val, err)
		}
	}
	return nil
}
