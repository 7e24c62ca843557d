package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/presence/internal/config"
)

var setOpts struct {
	clientID   string
	details    string
	state      string
	largeImage string
	largeText  string
	smallImage string
	smallText  string
	timer      bool
	duration   int
	rotate     int
	save       bool
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Publish a presence",
	Long: `Publish a presence through presenced.

Flags are applied on top of the daemon's current document; anything not
given keeps its current value. Details and state accept several phrases
separated by | or newlines, which are rotated in order.

Examples:
  # Publish the current document
  presence set

  # Rotate two details phrases every 30 seconds
  presence set --details "Coding | Reviewing" --rotate 30

  # Show a 25 minute countdown and keep the change
  presence set --timer --duration 1500 --save`,
	Args: cobra.NoArgs,
	RunE: runSet,

	Annotations: map[string]string{publisherAnnotation: ""},
}

func init() {
	rootCmd.AddCommand(setCmd)
	addSetFlags(setCmd.Flags())
}

// addSetFlags registers the document overlay flags on fs.
func addSetFlags(fs *pflag.FlagSet) {
	fs.StringVar(&setOpts.clientID, "client-id", "",
		"Discord application id")
	fs.StringVar(&setOpts.details, "details", "",
		"Details phrase(s), separated by |")
	fs.StringVar(&setOpts.state, "state", "",
		"State phrase(s), separated by |")
	fs.StringVar(&setOpts.largeImage, "large-image", "",
		"Large image asset key")
	fs.StringVar(&setOpts.largeText, "large-text", "",
		"Large image tooltip")
	fs.StringVar(&setOpts.smallImage, "small-image", "",
		"Small image asset key")
	fs.StringVar(&setOpts.smallText, "small-text", "",
		"Small image tooltip")
	fs.BoolVar(&setOpts.timer, "timer", false,
		"Show an elapsed or countdown timer")
	fs.IntVar(&setOpts.duration, "duration", 0,
		"Countdown length in seconds (0 = elapsed time)")
	fs.IntVar(&setOpts.rotate, "rotate", 0,
		"Seconds between phrase rotations (minimum 15)")
	fs.BoolVar(&setOpts.save, "save", false,
		"Also save the resulting document")
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cmd))
	defer cancel()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	current, err := client.LoadConfig(ctx)
	if err != nil {
		return err
	}

	cfg, err := applySetFlags(cmd, current)
	if err != nil {
		return err
	}

	if setOpts.save {
		if err := client.SaveConfig(ctx, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	msg, err := client.SetPresence(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

// applySetFlags returns a copy of base with the changed flags applied.
func applySetFlags(cmd *cobra.Command, base *config.Presence) (*config.Presence, error) {
	cfg := base.Clone()
	flags := cmd.Flags()

	strs := []struct {
		name string
		val  string
		dst  *string
	}{
		{"client-id", setOpts.clientID, &cfg.ClientID},
		{"details", setOpts.details, &cfg.Details},
		{"state", setOpts.state, &cfg.State},
		{"large-image", setOpts.largeImage, &cfg.LargeImageKey},
		{"large-text", setOpts.largeText, &cfg.LargeImageText},
		{"small-image", setOpts.smallImage, &cfg.SmallImageKey},
		{"small-text", setOpts.smallText, &cfg.SmallImageText},
	}
	for _, s := range strs {
		if flags.Changed(s.name) {
			*s.dst = s.val
		}
	}

	if flags.Changed("timer") {
		cfg.ShowTimer = setOpts.timer
	}
	if flags.Changed("duration") {
		if setOpts.duration < 0 {
			return nil, fmt.Errorf("--duration must not be negative")
		}
		cfg.DurationSec = setOpts.duration
	}
	if flags.Changed("rotate") {
		if setOpts.rotate < 0 {
			return nil, fmt.Errorf("--rotate must not be negative")
		}
		cfg.RotateSec = setOpts.rotate
	}
	return cfg, nil
}
