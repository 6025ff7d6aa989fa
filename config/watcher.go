package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file on change and notifies subscribers.
// Editors commonly replace files via rename, so the parent directory is
// watched rather than the file itself.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   bool

	// Output channel of validated configs.
	updates chan *Config

	started bool
	done    chan struct{}
}

// WatcherConfig configures a config file watcher.
type WatcherConfig struct {
	// Path is the config file to watch.
	Path string

	// DebounceDelay is how long to wait for more changes before
	// reloading.
	DebounceDelay time.Duration

	// Logger for logging events.
	Logger *slog.Logger
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := cfg.DebounceDelay
	if debounce == 0 {
		debounce = 250 * time.Millisecond
	}

	return &Watcher{
		path:     cfg.Path,
		debounce: debounce,
		logger:   logger,
		watcher:  fsw,
		updates:  make(chan *Config, 1),
		done:     make(chan struct{}),
	}, nil
}

// Updates returns the channel of reloaded configs. Invalid configs are
// logged and dropped, never delivered.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Start begins watching. The watcher stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.started = true
	go w.processEvents(ctx)

	w.logger.Info("Config watcher started",
		"path", w.path,
		"debounce", w.debounce)
	return nil
}

// Stop closes the watcher. The updates channel is closed only after the
// event goroutine has exited, so no reload can send on it concurrently.
// Stop must be called at most once.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	close(w.updates)
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pendingMu.Lock()
				w.pending = true
				w.pendingMu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	dirty := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !dirty {
		return
	}

	cfg, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("Config reload failed", "path", w.path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("Reloaded config invalid, keeping previous", "error", err)
		return
	}

	// A stale unconsumed update is replaced by the newest one.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg

	w.logger.Info("Config reloaded", "path", w.path)
}
