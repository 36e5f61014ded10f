// Package config loads posmap settings.
//
// Settings come from three layers, lowest precedence first:
//
//   - built-in defaults (Default)
//   - a TOML file (Load, LoadFromReader)
//   - POSMAP_* environment variables (ApplyEnv)
//
// A Watcher reloads the file when it changes on disk and hands the new
// Config to a callback.
//
// Example posmap.toml:
//
//	[log]
//	level = "debug"
//
//	[history]
//	max_entries = 500
//
//	[tracker]
//	max_changes = 10000
//	max_revisions = 100
//
//	[lua]
//	instruction_limit = 1000000
//	timeout = "2s"
package config
