package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/presence/internal/adapter/output"
	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/dbus"
)

var configOpts struct {
	format   string
	template string
	daemon   bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or reset the presence document",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the presence document",
	Long: `Print the presence document. The daemon's current document is shown
when presenced is running, otherwise the file is read.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the presence document and daemon config paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), presencePath())
		fmt.Fprintln(cmd.OutOrStdout(), config.DaemonConfigPath())
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the presence document with the defaults",
	Long: `Replace the presence document with the defaults. The client id is
kept unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigReset,
}

var resetAll bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd, configResetCmd)

	configShowCmd.Flags().StringVarP(&configOpts.format, "format", "f", "plain",
		"Output format: json, yaml, plain")
	configShowCmd.Flags().StringVar(&configOpts.template, "template", "",
		"Go template for plain output")
	configShowCmd.Flags().BoolVar(&configOpts.daemon, "daemon", true,
		"Ask presenced for its current document before reading the file")

	configResetCmd.Flags().BoolVar(&resetAll, "all", false,
		"Also clear the client id")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(configOpts.format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	cfg, err := currentConfig(ctx, configOpts.daemon)
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = configOpts.template
	return output.NewFormatter(format, opts).FormatConfig(cmd.OutOrStdout(), cfg)
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	current, err := currentConfig(ctx, true)
	if err != nil {
		return err
	}

	cfg := config.Defaults()
	if !resetAll {
		cfg.ClientID = current.ClientID
	}

	msg, err := saveConfig(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

// currentConfig returns the daemon's document when useDaemon is set and
// the daemon is running, otherwise the file.
func currentConfig(ctx context.Context, useDaemon bool) (*config.Presence, error) {
	if !useDaemon {
		return loadCurrent(ctx, nil)
	}

	client, err := connect(ctx)
	if err != nil {
		if errors.Is(err, dbus.ErrDaemonNotRunning) {
			logger.Debug("daemon not running, reading file", "path", presencePath())
			return loadCurrent(ctx, nil)
		}
		return nil, err
	}
	defer func() { _ = client.Close() }()
	return loadCurrent(ctx, client)
}

// saveConfig saves through the daemon so it updates its current document
// and autostart entry, falling back to the file when it is not running.
func saveConfig(ctx context.Context, cfg *config.Presence) (string, error) {
	client, err := connect(ctx)
	switch {
	case errors.Is(err, dbus.ErrDaemonNotRunning):
		path := presencePath()
		if err := cfg.Save(path); err != nil {
			return "", fmt.Errorf("failed to save config: %w", err)
		}
		return "Saved to " + path + " (presenced not running)", nil
	case err != nil:
		return "", err
	}
	defer func() { _ = client.Close() }()

	if err := client.SaveConfig(ctx, cfg); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	return "Saved", nil
}

func outputJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
