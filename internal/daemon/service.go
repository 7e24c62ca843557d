package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
	"github.com/jmylchreest/presence/internal/presence"
)

// ClearedMessage is reported after a clear request.
const ClearedMessage = "Presence cleared"

// StatusEmitter forwards status events to front ends.
type StatusEmitter interface {
	EmitStatus(status model.Status) error
}

// Recorder keeps a log of status events.
type Recorder interface {
	Record(status model.Status) error
}

// Autostart installs or removes the login autostart entry.
type Autostart interface {
	Set(enabled bool) error
	Enabled() bool
}

// Service owns the process-current presence document and serves the
// requests of the front ends.
type Service struct {
	mu     sync.Mutex
	logger *slog.Logger

	path      string
	current   *config.Presence
	publisher *presence.Publisher

	autostart Autostart
	notifier  *Notifier
	emitter   StatusEmitter
	recorder  Recorder
}

// NewService creates a Service for the document at path, starting with current.
func NewService(path string, current *config.Presence, publisher *presence.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if current == nil {
		current = config.Defaults()
	}
	s := &Service{
		logger:    logger,
		path:      path,
		current:   current.Clone(),
		publisher: publisher,
	}
	publisher.SetStatusHandler(s.dispatchStatus)
	return s
}

// SetAutostart sets the autostart manager applied on save.
func (s *Service) SetAutostart(a Autostart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autostart = a
}

// SetNotifier sets the desktop notifier for status events.
func (s *Service) SetNotifier(n *Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// SetRecorder sets the status history log.
func (s *Service) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// SetEmitter sets the status signal emitter.
func (s *Service) SetEmitter(e StatusEmitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = e
}

// LoadConfig returns a copy of the current document.
func (s *Service) LoadConfig() *config.Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// SaveConfig writes cfg to disk, applies runAtLogin and makes cfg current.
// The document only becomes current when the write succeeds.
func (s *Service) SaveConfig(cfg *config.Presence) error {
	if cfg == nil {
		return fmt.Errorf("no config given")
	}

	if err := cfg.Save(s.path); err != nil {
		s.logger.Warn("failed to save presence config", "path", s.path, "error", err)
		s.dispatchStatus(model.NewStatus(false, "Failed to save config: "+err.Error()))
		return err
	}

	s.mu.Lock()
	s.current = cfg.Clone()
	autostart := s.autostart
	s.mu.Unlock()

	if autostart != nil {
		if err := autostart.Set(cfg.RunAtLogin); err != nil {
			s.logger.Warn("failed to update autostart entry", "run_at_login", cfg.RunAtLogin, "error", err)
		}
	}

	s.logger.Debug("saved presence config", "path", s.path, "client_id", cfg.ClientID)
	return nil
}

// SetPresence publishes cfg, or the current document when cfg is nil.
func (s *Service) SetPresence(ctx context.Context, cfg *config.Presence) (string, error) {
	if cfg == nil {
		cfg = s.LoadConfig()
	}
	return s.publisher.SetPresence(ctx, cfg)
}

// ClearPresence removes the published activity.
func (s *Service) ClearPresence(ctx context.Context) string {
	s.publisher.ClearPresence(ctx)
	return ClearedMessage
}

// Snapshot returns the publisher status.
func (s *Service) Snapshot() model.Snapshot {
	return s.publisher.Snapshot()
}

// AutoPublish publishes the current document when it names a client id.
func (s *Service) AutoPublish(ctx context.Context) {
	cfg := s.LoadConfig()
	if cfg.Validate() != nil {
		s.logger.Info("skipping presence on launch: no client id")
		return
	}

	s.logger.Info("setting presence on launch", "client_id", cfg.ClientID)
	if _, err := s.publisher.SetPresence(ctx, cfg); err != nil {
		s.logger.Warn("failed to set presence on launch", "error", err)
	}
}

// Reload makes an externally edited document current. When a presence
// is being published it is re-applied with the new content.
func (s *Service) Reload(ctx context.Context, cfg *config.Presence) {
	s.mu.Lock()
	if s.current.Equal(cfg) {
		s.mu.Unlock()
		return
	}
	s.current = cfg.Clone()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.NotifyConfigReloaded()
	}
	s.SyncAutostart()

	if !s.publisher.Snapshot().Rotating {
		return
	}
	if _, err := s.publisher.SetPresence(ctx, cfg); err != nil {
		s.logger.Warn("failed to re-apply reloaded presence", "error", err)
	}
}

// SyncAutostart installs or removes the autostart entry when it disagrees
// with runAtLogin in the current document.
func (s *Service) SyncAutostart() {
	s.mu.Lock()
	autostart := s.autostart
	want := s.current.RunAtLogin
	s.mu.Unlock()

	if autostart == nil || autostart.Enabled() == want {
		return
	}
	if err := autostart.Set(want); err != nil {
		s.logger.Warn("failed to update autostart entry", "run_at_login", want, "error", err)
		return
	}
	s.logger.Info("autostart entry updated", "run_at_login", want)
}

// ApplySettings pushes daemon settings into the running components.
func (s *Service) ApplySettings(cfg *config.DaemonConfig) {
	s.publisher.SetRetryPolicy(presence.RetryPolicy{
		Attempts: cfg.Login.Attempts,
		Delay:    cfg.Login.Delay.Duration(),
	})
	s.publisher.SetMinInterval(cfg.Rotation.MinInterval.Duration())

	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()
	if notifier != nil {
		notifier.SetEnabled(cfg.Notifications.Enabled)
		notifier.SetMinInterval(cfg.Notifications.MinInterval.Duration())
	}
}

// Shutdown stops publishing and releases the transport.
func (s *Service) Shutdown() {
	s.publisher.Shutdown()
}

// dispatchStatus fans a status event out to the emitter, the notifier
// and the history log.
func (s *Service) dispatchStatus(status model.Status) {
	s.mu.Lock()
	emitter := s.emitter
	notifier := s.notifier
	recorder := s.recorder
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.Record(status); err != nil {
			s.logger.Warn("failed to record status", "error", err)
		}
	}
	if emitter != nil {
		if err := emitter.EmitStatus(status); err != nil {
			s.logger.Debug("failed to emit status", "error", err)
		}
	}
	if notifier != nil {
		notifier.NotifyStatus(status)
	}
}
