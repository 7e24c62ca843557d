// Package daemon provides the main orchestration for presenced.
// It ties the presence publisher to the config store, the autostart
// entry, desktop notifications, the status history and configuration
// hot-reload.
package daemon
