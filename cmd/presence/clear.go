package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Stop rotating and clear the published presence",
	Args:  cobra.NoArgs,
	RunE:  runClear,

	Annotations: map[string]string{publisherAnnotation: ""},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cmd))
	defer cancel()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	msg, err := client.ClearPresence(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
