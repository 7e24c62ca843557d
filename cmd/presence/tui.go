package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/presence/internal/config"
	"github.com/jmylchreest/presence/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Edit and publish the presence interactively",
	Long: `Launch the interactive editor for the presence document.

Set and clear go through presenced. Save goes through presenced when it is
running and writes the file directly otherwise.

Key bindings:
  tab/↓, shift+tab/↑   Move between fields
  space                Toggle an option
  ctrl+s               Save
  ctrl+p               Set presence
  ctrl+x               Clear presence
  ctrl+r               Reload
  ctrl+y               Copy the document as JSON
  f1                   Show help
  esc                  Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(daemonBackend{})
}

// daemonBackend connects to presenced for each action so the editor keeps
// working when the daemon is started or restarted while it is open.
type daemonBackend struct{}

func (daemonBackend) Load(ctx context.Context) (*config.Presence, error) {
	return currentConfig(ctx, true)
}

func (daemonBackend) Save(ctx context.Context, cfg *config.Presence) (string, error) {
	return saveConfig(ctx, cfg)
}

func (daemonBackend) Set(ctx context.Context, cfg *config.Presence) (string, error) {
	client, err := connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()
	return client.SetPresence(ctx, cfg)
}

func (daemonBackend) Clear(ctx context.Context) (string, error) {
	client, err := connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()
	return client.ClearPresence(ctx)
}
