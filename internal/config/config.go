// Package config handles the presence document and the daemon settings file.
package config

import (
	"os"
	"path/filepath"
)

// AppDir is the directory name used under the XDG base directories.
const AppDir = "presence"

// ConfigHome returns XDG_CONFIG_HOME, falling back to ~/.config.
func ConfigHome() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return configHome
}

// DataHome returns XDG_DATA_HOME, falling back to ~/.local/share.
func DataHome() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return dataHome
}

// ConfigDir returns the presence configuration directory.
func ConfigDir() string {
	home := ConfigHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, AppDir)
}

// PresencePath returns the path to the presence document.
func PresencePath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DaemonConfigPath returns the path to the daemon settings file.
func DaemonConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "presenced.toml")
}

// HistoryPath returns the path to the status history log.
func HistoryPath() string {
	home := DataHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, AppDir, "history.jsonl")
}
