package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tbag/internal/api"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var session string
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the audit event feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			params := []string{}
			if strings.TrimSpace(session) != "" {
				params = append(params, "session="+strings.TrimSpace(session))
			}
			if limit > 0 {
				params = append(params, "limit="+strconv.Itoa(limit))
			}
			path := "/api/events"
			if len(params) > 0 {
				path += "?" + strings.Join(params, "&")
			}
			var resp api.EventListResponse
			if err := client.get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for _, ev := range resp.Events {
				line := fmt.Sprintf("%s  %-14s %s", ev.Timestamp, ev.Kind, ev.SessionID)
				if len(ev.Payload) > 0 && string(ev.Payload) != "{}" {
					line += "  " + string(ev.Payload)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
	cmd.Flags().StringVar(&session, "session", "", "Only show events for this session")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events")
	return cmd
}
