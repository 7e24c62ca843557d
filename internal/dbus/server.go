package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
)

// Handler carries out the requests received on the bus.
type Handler interface {
	// LoadConfig returns the process-current presence document.
	LoadConfig() *config.Presence
	// SaveConfig persists cfg and makes it current.
	SaveConfig(cfg *config.Presence) error
	// SetPresence publishes cfg, or the current document when cfg is nil.
	SetPresence(ctx context.Context, cfg *config.Presence) (string, error)
	// ClearPresence removes the published activity.
	ClearPresence(ctx context.Context) string
	// Snapshot returns the publisher status.
	Snapshot() model.Snapshot
}

// PresenceServer exports a Handler as the io.github.jmylchreest.Presence service.
type PresenceServer struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	handler Handler

	// ctx bounds the work started by method calls; cancelled on Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// NewPresenceServer creates a PresenceServer for handler.
func NewPresenceServer(handler Handler, logger *slog.Logger) *PresenceServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PresenceServer{
		logger:  logger,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start connects to the session bus and exports the service.
func (s *PresenceServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the service on conn and claims BusName.
func (s *PresenceServer) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: presenceMethods(),
				Signals: presenceSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken (is presenced already running?)", BusName)
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus presence service started", "name", BusName, "path", ObjectPath)
	return nil
}

// Stop cancels in-flight calls and releases the bus name.
func (s *PresenceServer) Stop() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	// Don't close the connection as it's shared (SessionBus)

	s.logger.Info("D-Bus presence service stopped")
	return nil
}

// LoadConfig returns the current presence document as JSON.
// D-Bus method: LoadConfig() -> s
func (s *PresenceServer) LoadConfig() (string, *dbus.Error) {
	s.logger.Debug("LoadConfig called")
	data, err := json.Marshal(s.handler.LoadConfig())
	if err != nil {
		return "", failed(err)
	}
	return string(data), nil
}

// SaveConfig persists a presence document.
// D-Bus method: SaveConfig(s) -> nothing
func (s *PresenceServer) SaveConfig(doc string) *dbus.Error {
	s.logger.Debug("SaveConfig called")
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		return invalidArgs(err)
	}
	if err := s.handler.SaveConfig(cfg); err != nil {
		return failed(err)
	}
	return nil
}

// SetPresence publishes a presence document; an empty argument publishes
// the current one. Failures are reported in the result, not as errors.
// D-Bus method: SetPresence(s) -> (b, s)
func (s *PresenceServer) SetPresence(doc string) (bool, string, *dbus.Error) {
	s.logger.Debug("SetPresence called", "explicit", strings.TrimSpace(doc) != "")

	var cfg *config.Presence
	if strings.TrimSpace(doc) != "" {
		parsed, err := config.Parse([]byte(doc))
		if err != nil {
			return false, "", invalidArgs(err)
		}
		cfg = parsed
	}

	msg, err := s.handler.SetPresence(s.ctx, cfg)
	if err != nil {
		return false, err.Error(), nil
	}
	return true, msg, nil
}

// ClearPresence removes the published activity.
// D-Bus method: ClearPresence() -> s
func (s *PresenceServer) ClearPresence() (string, *dbus.Error) {
	s.logger.Debug("ClearPresence called")
	return s.handler.ClearPresence(s.ctx), nil
}

// GetStatus returns the publisher snapshot as JSON.
// D-Bus method: GetStatus() -> s
func (s *PresenceServer) GetStatus() (string, *dbus.Error) {
	data, err := json.Marshal(s.handler.Snapshot())
	if err != nil {
		return "", failed(err)
	}
	return string(data), nil
}

func invalidArgs(err error) *dbus.Error {
	return dbus.NewError(ErrorInvalidArgs, []any{err.Error()})
}

func failed(err error) *dbus.Error {
	return dbus.NewError(ErrorFailed, []any{err.Error()})
}

// presenceMethods returns the D-Bus method introspection data.
func presenceMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "LoadConfig",
			Args: []introspect.Arg{
				{Name: "config", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "SaveConfig",
			Args: []introspect.Arg{
				{Name: "config", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "SetPresence",
			Args: []introspect.Arg{
				{Name: "config", Type: "s", Direction: "in"},
				{Name: "ok", Type: "b", Direction: "out"},
				{Name: "message", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "ClearPresence",
			Args: []introspect.Arg{
				{Name: "message", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "status", Type: "s", Direction: "out"},
			},
		},
	}
}

// presenceSignals returns the D-Bus signal introspection data.
func presenceSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: StatusMember,
			Args: []introspect.Arg{
				{Name: "ok", Type: "b"},
				{Name: "message", Type: "s"},
			},
		},
	}
}

// Connection returns the bus connection the service is exported on.
func (s *PresenceServer) Connection() *dbus.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
