// Package main is the entry point for the presenced Rich Presence daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/presence/internal/autostart"
	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/daemon"
	"github.com/jmylchreest/presence/internal/dbus"
	"github.com/jmylchreest/presence/internal/discord"
	"github.com/jmylchreest/presence/internal/presence"
	"github.com/jmylchreest/presence/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to presence document (default: ~/.config/presence/config.json)")
	daemonConfigPath := pflag.String("daemon-config", "", "Path to daemon config (default: ~/.config/presence/presenced.toml)")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug logging")
	showVersion := pflag.Bool("version", false, "Show version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("presenced version", version)
		os.Exit(0)
	}

	// Set up structured logging
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *daemonConfigPath, logger); err != nil {
		logger.Error("presenced failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, daemonConfigPath string, logger *slog.Logger) error {
	if configPath == "" {
		configPath = config.PresencePath()
	}
	if daemonConfigPath == "" {
		daemonConfigPath = config.DaemonConfigPath()
	}

	logger.Info("starting presenced", "version", version, "config", configPath)

	settings, err := config.LoadDaemonConfig(daemonConfigPath)
	if err != nil {
		logger.Warn("failed to load daemon config, using defaults", "path", daemonConfigPath, "error", err)
		settings = config.DefaultDaemonConfig()
	}

	// The dialer reads the settings on every dial so a reloaded socket
	// path or timeout applies to the next connection.
	var active atomic.Pointer[config.DaemonConfig]
	active.Store(settings)
	dial := func() presence.Transport {
		s := active.Load()
		client := discord.NewClient(logger.With("component", "discord"))
		client.SetSocketPath(s.Discord.Socket)
		client.SetTimeout(s.Login.RequestTimeout.Duration())
		return client
	}

	publisher := presence.NewPublisher(dial, logger.With("component", "publisher"))
	current := config.LoadOrDefault(configPath, logger)
	svc := daemon.NewService(configPath, current, publisher, logger.With("component", "service"))

	if entry, err := autostart.New(); err != nil {
		logger.Warn("autostart unavailable", "error", err)
	} else {
		logger.Debug("autostart entry", "path", entry.Path(), "installed", entry.Enabled())
		svc.SetAutostart(entry)
		svc.SyncAutostart()
	}

	if settings.History.Enabled {
		history, err := store.Open(config.HistoryPath(), settings.History.MaxEntries)
		if err != nil {
			logger.Warn("status history unavailable", "error", err)
		} else {
			defer history.Close()
			svc.SetRecorder(history)
		}
	}

	notifier := daemon.NewNotifier(logger.With("component", "notifier"))
	svc.SetNotifier(notifier)
	svc.ApplySettings(settings)

	server := dbus.NewPresenceServer(svc, logger.With("component", "dbus"))
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start D-Bus service: %w", err)
	}
	svc.SetEmitter(server)
	notifier.SetNotifyHandler(dbus.NewDesktopNotifier(server.Connection(), logger).Notify)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *daemon.ConfigWatcher
	if settings.Watch.Config {
		watcher = daemon.NewConfigWatcher(configPath, logger.With("component", "watcher"))
		watcher.SetDebounce(settings.Watch.Debounce.Duration())
		watcher.SetReloadCallback(func(cfg *config.Presence) {
			svc.Reload(ctx, cfg)
		})
		watcher.SetErrorCallback(notifier.NotifyConfigError)
		if err := watcher.Start(ctx, current); err != nil {
			logger.Warn("failed to watch presence document", "error", err)
			watcher = nil
		}
	}

	settingsWatcher := daemon.NewSettingsWatcher(daemonConfigPath, logger.With("component", "settings"))
	settingsWatcher.SetReloadCallback(func(cfg *config.DaemonConfig) {
		active.Store(cfg)
		svc.ApplySettings(cfg)
		logger.Info("daemon config reloaded", "path", daemonConfigPath)
	})
	settingsWatcher.SetErrorCallback(notifier.NotifyConfigError)
	if err := settingsWatcher.Start(ctx, settings); err != nil {
		logger.Warn("failed to watch daemon config", "error", err)
	}

	notifier.NotifyStartup(version)
	go svc.AutoPublish(ctx)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	cancel()
	if watcher != nil {
		watcher.Stop()
	}
	settingsWatcher.Stop()
	if err := server.Stop(); err != nil {
		logger.Warn("failed to stop D-Bus service", "error", err)
	}
	svc.Shutdown()

	logger.Info("presenced stopped")
	return nil
}
