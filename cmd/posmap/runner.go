package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/posmap/internal/config"
	"github.com/dshills/posmap/internal/logging"
	"github.com/dshills/posmap/internal/plugin/lua"
	"github.com/dshills/posmap/internal/script"
	"github.com/dshills/posmap/internal/watcher"
)

// runner executes scripts and prints one line per query or check.
type runner struct {
	out    io.Writer
	logger *logging.Logger

	// fixedLevel is set when the log level came from the command line and
	// config reloads must not change it.
	fixedLevel bool

	mu  sync.Mutex
	cfg *config.Config
}

func newRunner(cfg *config.Config, out io.Writer, logger *logging.Logger) *runner {
	return &runner{out: out, logger: logger, cfg: cfg}
}

func (r *runner) config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

func (r *runner) setConfig(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	if !r.fixedLevel {
		r.logger.SetLevel(cfg.LogLevel())
	}
}

// runAll runs every script and reports whether all of them passed.
func (r *runner) runAll(ctx context.Context, paths []string) bool {
	ok := true
	for _, path := range paths {
		if ctx.Err() != nil {
			return false
		}
		if !r.runFile(ctx, path) {
			ok = false
		}
	}
	return ok
}

// runFile runs one script, choosing the engine by extension.
func (r *runner) runFile(ctx context.Context, path string) bool {
	name := filepath.Base(path)

	var (
		passed bool
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		passed, err = r.runYAML(ctx, path, name)
	case ".lua":
		passed, err = r.runLua(ctx, path, name)
	default:
		err = fmt.Errorf("unsupported script type %q", filepath.Ext(path))
	}

	if err != nil {
		fmt.Fprintf(r.out, "%s: error: %v\n", name, err)
		r.logger.WithField("script", name).Error("%v", err)
		return false
	}
	return passed
}

func (r *runner) runYAML(ctx context.Context, path, name string) (bool, error) {
	s, err := script.Load(path)
	if err != nil {
		return false, err
	}

	report, err := script.Run(ctx, s,
		script.WithHistory(r.config().NewHistory()),
		script.WithLogger(r.logger),
	)
	if err != nil {
		return false, err
	}

	for _, res := range report.Results {
		fmt.Fprintf(r.out, "%s: %s\n", name, res)
	}
	return report.OK(), nil
}

func (r *runner) runLua(ctx context.Context, path, name string) (bool, error) {
	cfg := r.config()
	state, err := lua.NewState(
		lua.WithExecutionTimeout(cfg.Lua.Timeout.Duration),
		lua.WithInstructionLimit(cfg.Lua.InstructionLimit),
		lua.WithOutput(r.out),
	)
	if err != nil {
		return false, err
	}
	defer state.Close()

	if err := state.DoFile(ctx, path); err != nil {
		return false, err
	}

	passed := true
	checks := state.Checks()
	for _, c := range checks {
		fmt.Fprintf(r.out, "%s: %s\n", name, c)
		if !c.Passed {
			passed = false
		}
	}
	r.logger.WithField("script", name).Debug("%d checks, %d posmap calls", len(checks), state.InstructionCount())
	return passed, nil
}

// watch re-runs scripts as they change until ctx is done. When a config
// file is given, it is reloaded on change and applies to later runs.
func (r *runner) watch(ctx context.Context, opts options) error {
	fw, err := watcher.New()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, path := range opts.Scripts {
		if err := fw.Watch(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	if opts.ConfigPath != "" {
		cw, err := config.NewWatcher(opts.ConfigPath, func(cfg *config.Config, err error) {
			if err == nil {
				r.setConfig(cfg)
			}
		}, config.WithLogger(r.logger))
		if err != nil {
			return err
		}
		defer cw.Close()
		go func() {
			_ = cw.Run(ctx)
		}()
	}

	r.logger.Info("watching %d scripts", len(opts.Scripts))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}
			if _, err := os.Stat(ev.Path); err != nil {
				r.logger.Warn("%s: %s, skipping", ev.Path, ev.Op)
				continue
			}
			r.logger.Debug("%s changed (%s)", ev.Path, ev.Op)
			r.runFile(ctx, ev.Path)

		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}
			r.logger.Warn("watch error: %v", err)
		}
	}
}
