package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounceDelay coalesces the burst of fsnotify events editors emit when
// saving a file into a single reload.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads the config file on change and publishes valid configs
// to a Runtime. Invalid configs are logged and discarded, keeping the
// last good config active.
type Watcher struct {
	path     string
	runtime  *Runtime
	onReload func(*Config)
	logger   zerolog.Logger
	fsw      *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadHook registers a callback invoked after each successful reload.
func WithReloadHook(fn func(*Config)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(path string, runtime *Runtime, logger zerolog.Logger, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:    path,
		runtime: runtime,
		logger:  logger.With().Str("component", "config_watcher").Logger(),
		fsw:     fsw,
	}
	for _, opt := range opts {
		opt(w)
	}

	// Watch the directory rather than the file itself. Editors that
	// write via rename would otherwise detach the watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerC = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("config watch error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("config reload failed, keeping previous config")
		return
	}

	w.runtime.Store(cfg)
	w.logger.Info().Str("path", w.path).Msg("config reloaded")

	if w.onReload != nil {
		w.onReload(cfg)
	}
}
