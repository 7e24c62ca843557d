package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/presence/internal/model"
)

var watchOpts struct {
	json bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print status events as presenced emits them",
	Long: `Print every status event presenced emits after a set or clear attempt.
Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchOpts.json, "json", false,
		"Write one JSON object per event")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	out := cmd.OutOrStdout()
	return client.WatchStatus(ctx, func(status model.Status) {
		if watchOpts.json {
			_ = outputJSONLine(out, status)
			return
		}
		result := "ok"
		if !status.OK {
			result = "failed"
		}
		fmt.Fprintf(out, "%s  %-6s  %s\n", status.Time.Format("15:04:05"), result, status.Msg)
	})
}
