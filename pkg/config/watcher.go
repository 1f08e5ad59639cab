package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes. The file's directory
// is watched rather than the file, so editors that save by rename are seen.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *debouncer
}

// NewWatcher creates a Watcher for path. Events closer together than
// debounce trigger a single reload.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		logger:   logger.With("component", "config_watcher"),
		debounce: newDebouncer(debounce),
	}, nil
}

// Watch blocks until ctx is cancelled, calling onReload with the re-read
// configuration after each change. A file that fails to load or validate is
// logged and skipped; the previous settings stay in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	defer w.watcher.Close()
	defer w.debounce.stop()

	w.logger.Info("watching configuration file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("configuration file event", "op", event.Op.String())
			w.debounce.trigger(func() {
				cfg, err := Read(w.path)
				if err == nil {
					err = validateReloadable(cfg)
				}
				if err != nil {
					w.logger.Error("configuration reload failed", "path", w.path, "error", err)
					return
				}
				onReload(cfg)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	return err == nil && name == w.path
}

// validateReloadable checks the fields a reload applies. Positional
// arguments are not in the file, so full validation would fail.
func validateReloadable(cfg *Config) error {
	errs := validateTelemetry(&cfg.Telemetry)
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// debouncer runs the most recent callback after a quiet period.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
