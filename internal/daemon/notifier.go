package daemon

import (
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/presence/internal/dbus"
	"github.com/jmylchreest/presence/internal/model"
)

// NotificationLevel indicates the urgency/severity of a daemon notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// NotifyFunc delivers a notification and returns the id assigned to it.
type NotifyFunc func(notification *dbus.Notification) (uint32, error)

// Notifier turns daemon events into desktop notifications.
// Identical notifications are rate limited per key, and a repeated key
// replaces the previous notification instead of stacking a new one.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	notifyHandler NotifyFunc

	// Rate limiting
	lastNotifyTime map[string]time.Time // key -> last notification time
	lastID         map[string]uint32    // key -> id to replace
	minInterval    time.Duration        // minimum time between same notifications

	enabled bool
}

// NewNotifier creates a Notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		lastID:         make(map[string]uint32),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetNotifyHandler sets the function used to deliver notifications.
func (n *Notifier) SetNotifyHandler(handler NotifyFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless the same key fired within minInterval.
func (n *Notifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}

	if n.notifyHandler == nil {
		n.logger.Debug("notification skipped: no handler", "summary", summary)
		return
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok {
		if now.Sub(lastTime) < n.minInterval {
			n.logger.Debug("notification rate-limited", "key", key, "summary", summary)
			return
		}
	}
	n.lastNotifyTime[key] = now

	urgency := dbus.UrgencyNormal
	icon := "dialog-information"
	switch level {
	case NotificationLevelInfo:
		urgency = dbus.UrgencyLow
	case NotificationLevelWarning:
		urgency = dbus.UrgencyNormal
		icon = "dialog-warning"
	case NotificationLevelError:
		urgency = dbus.UrgencyCritical
		icon = "dialog-error"
	}

	notification := &dbus.Notification{
		AppName:    "presenced",
		ReplacesID: n.lastID[key],
		AppIcon:    icon,
		Summary:    summary,
		Body:       body,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(byte(urgency)),
			"category":      godbus.MakeVariant("presence"),
			"transient":     godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant("presenced"),
		},
		ExpireTimeout: 5000,
	}

	n.logger.Debug("sending notification", "key", key, "summary", summary, "level", level)

	id, err := n.notifyHandler(notification)
	if err != nil {
		n.logger.Debug("notification failed", "key", key, "error", err)
		return
	}
	n.lastID[key] = id
}

// NotifyStatus reports the outcome of a set or clear attempt.
func (n *Notifier) NotifyStatus(status model.Status) {
	if status.OK {
		n.Notify("status", "Presence", status.Msg, NotificationLevelInfo)
		return
	}
	n.Notify("status-error", "Presence Error", status.Msg, NotificationLevelWarning)
}

// NotifyConfigReloaded reports that the presence document was reloaded.
func (n *Notifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"The presence configuration has been reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError reports a configuration that could not be loaded.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyStartup reports that the daemon has started.
func (n *Notifier) NotifyStartup(version string) {
	n.Notify(
		"startup",
		"presenced Started",
		"Presence daemon v"+version+" is now running.",
		NotificationLevelInfo,
	)
}
