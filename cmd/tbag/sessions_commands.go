package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tbag/internal/api"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage the session queue",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsAddCommand(ctx))
	sessionsCmd.AddCommand(newSessionsRemoveCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path := "/api/sessions"
			if len(statusFilter) > 0 {
				params := make([]string, 0, len(statusFilter))
				for _, status := range statusFilter {
					params = append(params, "status="+strings.TrimSpace(status))
				}
				path += "?" + strings.Join(params, "&")
			}
			var resp api.RunListResponse
			if err := client.get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Items) == 0 {
				fmt.Fprintln(out, "No sessions.")
				return nil
			}
			rows := make([][]string, 0, len(resp.Items))
			for _, run := range resp.Items {
				rows = append(rows, []string{
					run.SessionID,
					run.Project,
					run.StackID,
					run.Operator,
					run.Device,
					run.Status,
					run.CreatedAt,
				})
			}
			headers := []string{"SESSION", "PROJECT", "STACK", "OPERATOR", "DEVICE", "STATUS", "CREATED"}
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
	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (pending, active, finished, aborted)")
	return cmd
}

func newSessionsAddCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "add <project> <stack-id> <operator>",
		Short: "Queue a new assembly session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var run api.Run
			req := api.EnqueueRequest{
				Project:  args[0],
				StackID:  args[1],
				Operator: args[2],
				Device:   device,
			}
			if err := client.post(cmd.Context(), "/api/sessions", req, &run); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued session %s for project %s\n", run.SessionID, run.Project)
			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "Pin the session to a specific kiosk")
	return cmd
}

func newSessionsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Remove a pending session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session %s\n", args[0])
			return nil
		},
	}
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var summary api.SessionSummary
			if err := client.get(cmd.Context(), "/api/sessions/"+args[0], &summary); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			run := summary.Run
			fmt.Fprintf(out, "Session:   %s\n", run.SessionID)
			fmt.Fprintf(out, "Project:   %s (%d steps)\n", run.Project, summary.TotalSteps)
			fmt.Fprintf(out, "Stack:     %s\n", run.StackID)
			fmt.Fprintf(out, "Operator:  %s\n", run.Operator)
			fmt.Fprintf(out, "Status:    %s\n", run.Status)
			if run.Device != "" {
				fmt.Fprintf(out, "Device:    %s\n", run.Device)
			}
			fmt.Fprintf(out, "Created:   %s\n", run.CreatedAt)
			if run.StartedAt != "" {
				fmt.Fprintf(out, "Started:   %s\n", run.StartedAt)
			}
			if run.FinishedAt != "" {
				fmt.Fprintf(out, "Finished:  %s\n", run.FinishedAt)
			}
			if run.InterruptedAt != nil {
				fmt.Fprintf(out, "Stopped at step %d\n", *run.InterruptedAt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
	return cmd
}
