// Package main is the entry point for the posmap script runner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/posmap/internal/config"
	"github.com/dshills/posmap/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errHelp is returned by parseFlags when usage was requested.
var errHelp = errors.New("help requested")

// options holds the parsed command line.
type options struct {
	ConfigPath  string
	LogLevel    string
	Watch       bool
	ShowVersion bool
	Scripts     []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if opts.ShowVersion {
		fmt.Fprintf(stdout, "posmap %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if len(opts.Scripts) == 0 {
		fmt.Fprintf(stderr, "Error: no scripts given\n")
		return 2
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel(),
		Output: stderr,
		Prefix: "posmap",
	})
	if opts.LogLevel != "" {
		level, _ := logging.ParseLevel(opts.LogLevel)
		logger.SetLevel(level)
	}
	logging.Set(logger)

	r := newRunner(cfg, stdout, logger)
	r.fixedLevel = opts.LogLevel != ""

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ok := r.runAll(ctx, opts.Scripts)
	if !opts.Watch {
		if !ok {
			return 1
		}
		return 0
	}

	if err := r.watch(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	var showHelp bool

	fs := flag.NewFlagSet("posmap", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	fs.BoolVar(&opts.Watch, "watch", false, "Re-run scripts when they change")
	fs.BoolVar(&opts.Watch, "w", false, "Re-run scripts when they change (shorthand)")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.ShowVersion, "v", false, "Show version information (shorthand)")
	fs.BoolVar(&showHelp, "help", false, "Show help message")
	fs.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "posmap - position mapping script runner\n\n")
		fmt.Fprintf(stderr, "Usage: posmap [options] script.yaml|script.lua ...\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  posmap undo.yaml              Run a YAML edit script\n")
		fmt.Fprintf(stderr, "  posmap check.lua              Run a Lua script\n")
		fmt.Fprintf(stderr, "  posmap -w -c posmap.toml *.yaml  Re-run on change\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, errHelp
		}
		return opts, err
	}

	if showHelp {
		fs.Usage()
		return opts, errHelp
	}

	// Validate log level
	if opts.LogLevel != "" {
		if _, ok := logging.ParseLevel(opts.LogLevel); !ok {
			return opts, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.LogLevel)
		}
	}

	opts.Scripts = fs.Args()
	return opts, nil
}
