// Package autostart manages the XDG autostart entry for presenced.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/presence/internal/config"
)

// EntryName is the file name of the autostart entry.
const EntryName = "presenced.desktop"

// Dir returns $XDG_CONFIG_HOME/autostart.
func Dir() string {
	home := config.ConfigHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, "autostart")
}

// Path returns the location of the autostart entry.
func Path() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, EntryName)
}

// Entry returns the desktop entry that launches exe at login.
func Entry(exe string) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=Presence\n")
	b.WriteString("Comment=Discord Rich Presence publisher\n")
	fmt.Fprintf(&b, "Exec=%s\n", exe)
	b.WriteString("Terminal=false\n")
	b.WriteString("NoDisplay=true\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}

// Manager writes or removes the autostart entry.
type Manager struct {
	path string
	exe  string
}

// New creates a Manager for the default entry path and the running executable.
func New() (*Manager, error) {
	path := Path()
	if path == "" {
		return nil, errors.New("unable to determine config directory")
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable: %w", err)
	}
	return NewWithPath(path, exe), nil
}

// NewWithPath creates a Manager for an explicit entry path and command.
func NewWithPath(path, exe string) *Manager {
	return &Manager{path: path, exe: exe}
}

// Path returns the entry path managed by m.
func (m *Manager) Path() string {
	return m.path
}

// Set installs the entry when enabled and removes it otherwise.
// Both directions are idempotent.
func (m *Manager) Set(enabled bool) error {
	if !enabled {
		if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(Entry(m.exe)), 0644); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to install autostart entry: %w", err)
	}
	return nil
}

// Enabled reports whether the entry is installed.
func (m *Manager) Enabled() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
