package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tbag/internal/api"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List registered kiosks and their liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.DeviceListResponse
			if err := client.get(cmd.Context(), "/api/devices", &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Devices) == 0 {
				fmt.Fprintln(out, "No devices registered.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Devices))
			for _, dev := range resp.Devices {
				live := "offline"
				if dev.Live {
					live = "live"
				}
				rows = append(rows, []string{dev.DeviceID, dev.Description, live, dev.AddedAt})
			}
			headers := []string{"DEVICE", "DESCRIPTION", "PRESENCE", "ADDED"}
			if stdoutIsTTY() {
				fmt.Fprintln(out, renderTable(headers, rows, nil))
			} else {
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
	return cmd
}
