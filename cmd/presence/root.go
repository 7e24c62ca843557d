package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// requestTimeout bounds daemon calls that do not involve a login.
const requestTimeout = 10 * time.Second

// setTimeout bounds SetPresence and ClearPresence. Both wait on the
// publisher lock, which a login with retries may hold.
const setTimeout = 2 * time.Minute

// publisherAnnotation marks commands that call into the publisher.
const publisherAnnotation = "publisher"

// commandTimeout returns the daemon call deadline for cmd.
func commandTimeout(cmd *cobra.Command) time.Duration {
	if _, ok := cmd.Annotations[publisherAnnotation]; ok {
		return setTimeout
	}
	return requestTimeout
}

var (
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "presence",
	Short: "Control Discord Rich Presence on Linux desktops",
	Long: `presence controls the presenced daemon, which publishes a rotating
Discord Rich Presence activity over Discord's local IPC socket.

Running presence without a subcommand launches the interactive editor.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to presence document (default: ~/.config/presence/config.json)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// presencePath returns the presence document path in use.
func presencePath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.PresencePath()
}

// connect opens a client to the running daemon.
func connect(ctx context.Context) (*dbus.Client, error) {
	client, err := dbus.Connect(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to reach presenced: %w", err)
	}
	return client, nil
}

// loadCurrent returns the daemon's current document, or the file when the
// daemon is not running.
func loadCurrent(ctx context.Context, client *dbus.Client) (*config.Presence, error) {
	if client != nil {
		return client.LoadConfig(ctx)
	}
	return config.Load(presencePath())
}
