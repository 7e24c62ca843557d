package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/presence/internal/config"
)

// DefaultDebounce is the quiet period after the last write before a reload.
const DefaultDebounce = 250 * time.Millisecond

// fileWatcher reports changes to a single file. Editors and atomic
// writers replace files, so the parent directory is watched and events
// are filtered by name. Bursts of events collapse into one callback.
type fileWatcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	path     string
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func newFileWatcher(path string, logger *slog.Logger) *fileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileWatcher{
		logger:   logger,
		path:     path,
		debounce: DefaultDebounce,
	}
}

func (w *fileWatcher) setDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.debounce = d
	}
}

func (w *fileWatcher) start(ctx context.Context, onChange func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.watcher = watcher
	w.onChange = onChange
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.watchLoop(ctx, watcher, w.debounce)

	w.logger.Debug("file watcher started", "path", w.path, "debounce", w.debounce)
	return nil
}

func (w *fileWatcher) stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	watcher := w.watcher
	w.mu.Unlock()

	// Wait for goroutine to finish
	<-w.doneCh
	_ = watcher.Close()
	w.logger.Debug("file watcher stopped", "path", w.path)
}

func (w *fileWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) {
	defer close(w.doneCh)

	name := filepath.Base(w.path)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Only care about our file
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "path", w.path, "error", err)

		case <-timer.C:
			w.logger.Debug("watched file changed", "path", w.path)
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}

// ConfigWatcher watches the presence document and reports edits made
// outside the daemon.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	files  *fileWatcher

	path    string
	current *config.Presence

	onReloadCallback func(cfg *config.Presence)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for the presence document at path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger: logger,
		files:  newFileWatcher(path, logger),
		path:   path,
	}
}

// SetDebounce sets the quiet period before a change is reloaded.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.files.setDebounce(d)
}

// SetReloadCallback sets the callback invoked with a changed, valid document.
func (w *ConfigWatcher) SetReloadCallback(callback func(cfg *config.Presence)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback invoked when the document cannot be read.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching. initial is the document the daemon is running with.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.Presence) error {
	w.mu.Lock()
	w.current = initial.Clone()
	w.mu.Unlock()
	return w.files.start(ctx, w.reload)
}

// Stop stops watching.
func (w *ConfigWatcher) Stop() {
	w.files.stop()
}

// Current returns the last document seen by the watcher.
func (w *ConfigWatcher) Current() *config.Presence {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Clone()
}

func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	current := w.current
	w.mu.RUnlock()

	cfg, err := config.Load(w.path)
	if err != nil {
		w.logger.Warn("presence config changed but could not be loaded", "path", w.path, "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	if cfg.Equal(current) {
		w.logger.Debug("presence config unchanged", "path", w.path)
		return
	}

	w.mu.Lock()
	w.current = cfg.Clone()
	w.mu.Unlock()

	w.logger.Info("presence config reloaded", "path", w.path)
	if reloadCallback != nil {
		reloadCallback(cfg)
	}
}

// SettingsWatcher watches the daemon settings file.
type SettingsWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	files  *fileWatcher

	path    string
	current *config.DaemonConfig

	onReloadCallback func(cfg *config.DaemonConfig)
	onErrorCallback  func(err error)
}

// NewSettingsWatcher creates a SettingsWatcher for the TOML file at path.
func NewSettingsWatcher(path string, logger *slog.Logger) *SettingsWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsWatcher{
		logger: logger,
		files:  newFileWatcher(path, logger),
		path:   path,
	}
}

// SetDebounce sets the quiet period before a change is reloaded.
func (w *SettingsWatcher) SetDebounce(d time.Duration) {
	w.files.setDebounce(d)
}

// SetReloadCallback sets the callback to invoke when settings are successfully reloaded.
func (w *SettingsWatcher) SetReloadCallback(callback func(cfg *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when a reload fails validation.
func (w *SettingsWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the settings file.
func (w *SettingsWatcher) Start(ctx context.Context, initial *config.DaemonConfig) error {
	w.mu.Lock()
	w.current = initial
	w.mu.Unlock()
	return w.files.start(ctx, w.reload)
}

// Stop stops watching.
func (w *SettingsWatcher) Stop() {
	w.files.stop()
}

// Current returns the current valid settings.
func (w *SettingsWatcher) Current() *config.DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *SettingsWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	cfg, err := config.LoadDaemonConfig(w.path)
	if err != nil {
		w.logger.Warn("settings changed but validation failed", "path", w.path, "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("settings reloaded", "path", w.path)
	if reloadCallback != nil {
		reloadCallback(cfg)
	}
}
