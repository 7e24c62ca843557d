// Package dbus bridges the presence daemon and its front ends over the
// session bus. It exports the io.github.jmylchreest.Presence service,
// provides the matching client used by the CLI, and sends desktop
// notifications through org.freedesktop.Notifications.
package dbus
