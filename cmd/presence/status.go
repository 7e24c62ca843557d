package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/presence/internal/adapter/output"
	"github.com/jmylchreest/presence/internal/dbus"
	"github.com/jmylchreest/presence/internal/model"
)

var statusOpts struct {
	format   string
	json     bool
	template string
	waybar   bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what presenced is publishing",
	Long: `Show the daemon's connection state, the activity being published and
the result of the last set or clear.

With --waybar the status is written in Waybar's custom module format:

  "custom/presence": {
    "exec": "presence status --waybar",
    "interval": 15,
    "return-type": "json",
    "on-click": "presence tui"
  }`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format: json, yaml, plain")
	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false,
		"Shorthand for --format json")
	statusCmd.Flags().StringVar(&statusOpts.template, "template", "",
		"Go template for plain output")
	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar custom module JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	snap, err := fetchStatus(ctx)
	if statusOpts.waybar {
		return outputWaybar(cmd.OutOrStdout(), waybarStatus(snap, err))
	}
	if err != nil {
		return err
	}

	name := statusOpts.format
	if statusOpts.json {
		name = string(output.FormatJSON)
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = statusOpts.template
	return output.NewFormatter(format, opts).FormatStatus(cmd.OutOrStdout(), snap)
}

func fetchStatus(ctx context.Context) (model.Snapshot, error) {
	client, err := connect(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer func() { _ = client.Close() }()
	return client.Status(ctx)
}

// waybarStatus creates a WaybarStatus from a snapshot.
func waybarStatus(snap model.Snapshot, err error) WaybarStatus {
	if errors.Is(err, dbus.ErrDaemonNotRunning) {
		return WaybarStatus{Alt: "stopped", Tooltip: "presenced is not running", Class: "stopped"}
	}
	if err != nil {
		return WaybarStatus{Alt: "error", Tooltip: err.Error(), Class: "error"}
	}

	if snap.Last != nil && !snap.Last.OK {
		return WaybarStatus{Alt: "error", Tooltip: snap.Last.Msg, Class: "error"}
	}
	if !snap.Rotating || snap.Activity == nil {
		return WaybarStatus{Alt: "idle", Tooltip: "No presence published", Class: "idle"}
	}

	var lines []string
	if snap.Activity.Details != "" {
		lines = append(lines, snap.Activity.Details)
	}
	if snap.Activity.State != "" {
		lines = append(lines, snap.Activity.State)
	}
	lines = append(lines, fmt.Sprintf("Rotating every %ds", snap.IntervalSeconds()))

	return WaybarStatus{
		Text:    snap.Activity.Details,
		Alt:     "active",
		Tooltip: strings.Join(lines, "\n"),
		Class:   "active",
	}
}

// outputWaybar writes the status as JSON.
func outputWaybar(w io.Writer, status WaybarStatus) error {
	return json.NewEncoder(w).Encode(status)
}
