package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/model"
)

// ErrDaemonNotRunning is returned when nothing owns BusName.
var ErrDaemonNotRunning = errors.New("presenced is not running")

// Client calls the presence service of a running presenced.
type Client struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger
}

// Connect opens a private session bus connection and checks that
// presenced owns its name.
func Connect(ctx context.Context, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var hasOwner bool
	err = conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&hasOwner)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to query bus name owner: %w", err)
	}
	if !hasOwner {
		_ = conn.Close()
		return nil, ErrDaemonNotRunning
	}

	return &Client{
		conn:   conn,
		obj:    conn.Object(BusName, ObjectPath),
		logger: logger,
	}, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// LoadConfig returns the daemon's current presence document.
func (c *Client) LoadConfig(ctx context.Context) (*config.Presence, error) {
	var doc string
	if err := c.call(ctx, "LoadConfig").Store(&doc); err != nil {
		return nil, mapError(err)
	}
	return config.Parse([]byte(doc))
}

// SaveConfig asks the daemon to persist cfg.
func (c *Client) SaveConfig(ctx context.Context, cfg *config.Presence) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal presence config: %w", err)
	}
	return mapError(c.call(ctx, "SaveConfig", string(data)).Err)
}

// SetPresence publishes cfg, or the daemon's current document when cfg is nil.
// A rejected request is returned as an error carrying the daemon's message.
func (c *Client) SetPresence(ctx context.Context, cfg *config.Presence) (string, error) {
	var doc string
	if cfg != nil {
		data, err := json.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("failed to marshal presence config: %w", err)
		}
		doc = string(data)
	}

	var (
		ok  bool
		msg string
	)
	if err := c.call(ctx, "SetPresence", doc).Store(&ok, &msg); err != nil {
		return "", mapError(err)
	}
	if !ok {
		return "", errors.New(msg)
	}
	return msg, nil
}

// ClearPresence removes the published activity.
func (c *Client) ClearPresence(ctx context.Context) (string, error) {
	var msg string
	if err := c.call(ctx, "ClearPresence").Store(&msg); err != nil {
		return "", mapError(err)
	}
	return msg, nil
}

// Status returns the daemon's publisher snapshot.
func (c *Client) Status(ctx context.Context) (model.Snapshot, error) {
	var doc string
	if err := c.call(ctx, "GetStatus").Store(&doc); err != nil {
		return model.Snapshot{}, mapError(err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid status reply: %w", err)
	}
	return snap, nil
}

// WatchStatus calls fn for every Status signal until ctx is done.
func (c *Client) WatchStatus(ctx context.Context, fn func(model.Status)) error {
	if err := c.conn.AddMatchSignalContext(ctx, statusMatch()...); err != nil {
		return fmt.Errorf("failed to subscribe to status signals: %w", err)
	}
	defer func() {
		if err := c.conn.RemoveMatchSignal(statusMatch()...); err != nil {
			c.logger.Debug("failed to remove status match", "error", err)
		}
	}()

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, open := <-ch:
			if !open {
				return errors.New("bus connection closed")
			}
			status, ok := parseStatusSignal(sig)
			if !ok {
				continue
			}
			fn(status)
		}
	}
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

// mapError turns bus errors into package errors where one applies.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	dbusErr, ok := asDBusError(err)
	if !ok {
		return err
	}

	switch dbusErr.Name {
	case "org.freedesktop.DBus.Error.ServiceUnknown", "org.freedesktop.DBus.Error.NameHasNoOwner":
		return ErrDaemonNotRunning
	case ErrorInvalidArgs, ErrorFailed:
		if len(dbusErr.Body) > 0 {
			if msg, ok := dbusErr.Body[0].(string); ok {
				return errors.New(msg)
			}
		}
	}
	return err
}

func asDBusError(err error) (dbus.Error, bool) {
	var value dbus.Error
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return dbus.Error{}, false
}
