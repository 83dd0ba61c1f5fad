package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tbag/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var status api.DaemonStatus
			if err := client.get(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:   %v (pid %d)\n", status.Running, status.PID)
			fmt.Fprintf(out, "Device:    %s\n", status.DeviceID)
			fmt.Fprintf(out, "Database:  %s\n", status.DBPath)
			if status.ActiveLine != nil {
				fmt.Fprintf(out, "Line:      %d\n", *status.ActiveLine)
			} else {
				fmt.Fprintln(out, "Line:      none")
			}
			fmt.Fprintf(out, "Sessions:  pending=%d active=%d finished=%d aborted=%d\n",
				status.QueueStats["pending"],
				status.QueueStats["active"],
				status.QueueStats["finished"],
				status.QueueStats["aborted"])
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
	return cmd
}
