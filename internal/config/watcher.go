package config

import (
	"context"
	"sync"

	"github.com/dshills/posmap/internal/logging"
	"github.com/dshills/posmap/internal/watcher"
)

// ReloadHandler receives the result of reloading a configuration file.
// On failure cfg is nil and the previous configuration stays in effect.
type ReloadHandler func(cfg *Config, err error)

// Watcher reloads a configuration file whenever it changes.
type Watcher struct {
	path    string
	handler ReloadHandler
	fw      *watcher.Watcher
	logger  *logging.Logger

	mu      sync.Mutex
	current *Config
}

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherOptions)

type watcherOptions struct {
	logger   *logging.Logger
	fileOpts []watcher.Option
}

// WithLogger sets the logger used for reload messages.
func WithLogger(l *logging.Logger) WatcherOption {
	return func(o *watcherOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFileWatcherOptions passes options to the underlying file watcher.
func WithFileWatcherOptions(opts ...watcher.Option) WatcherOption {
	return func(o *watcherOptions) {
		o.fileOpts = append(o.fileOpts, opts...)
	}
}

// NewWatcher loads path and starts watching it. The handler is not called
// for the initial load; use Current for that configuration.
func NewWatcher(path string, handler ReloadHandler, opts ...WatcherOption) (*Watcher, error) {
	o := watcherOptions{logger: logging.Get()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := watcher.New(o.fileOpts...)
	if err != nil {
		return nil, err
	}
	if err := fw.Watch(path); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return &Watcher{
		path:    path,
		handler: handler,
		fw:      fw,
		logger:  o.logger.WithComponent("config"),
		current: cfg,
	}, nil
}

// Current returns the most recently loaded valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run delivers reloads until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fw.Events():
			if !ok {
				return nil
			}
			w.reload(ev)

		case err, ok := <-w.fw.Errors():
			if !ok {
				return nil
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) reload(ev watcher.Event) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("reload %s failed: %v", w.path, err)
		w.notify(nil, err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.WithField("op", ev.Op).Info("reloaded %s", w.path)
	w.notify(cfg, nil)
}

func (w *Watcher) notify(cfg *Config, err error) {
	if w.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reload handler panic: %v", r)
		}
	}()
	w.handler(cfg, err)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
