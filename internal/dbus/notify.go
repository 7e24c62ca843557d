package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// notifyTimeout bounds a single Notify call.
const notifyTimeout = 3 * time.Second

// DesktopNotifier sends notifications to the session's notification server.
type DesktopNotifier struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewDesktopNotifier creates a DesktopNotifier on conn.
func NewDesktopNotifier(conn *dbus.Conn, logger *slog.Logger) *DesktopNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DesktopNotifier{conn: conn, logger: logger}
}

// Notify sends n and returns the id assigned by the notification server.
func (d *DesktopNotifier) Notify(n *Notification) (uint32, error) {
	if d.conn == nil {
		return 0, errors.New("not connected to D-Bus")
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	var id uint32
	obj := d.conn.Object(notificationsName, notificationsPath)
	if err := obj.CallWithContext(ctx, notificationsInterface+".Notify", 0, n.args()...).Store(&id); err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}

	d.logger.Debug("sent desktop notification", "id", id, "summary", n.Summary)
	return id, nil
}
