package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"beatforge/internal/config"
	"beatforge/internal/logging"
	"beatforge/internal/queue"
	"beatforge/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project, stage, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Project", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Project dir", statusInfo, cfg.Paths.ProjectDir, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Asset store", statusInfo, store.Path(), colorize))
				notifyState := "disabled"
				if cfg.Notifications.NtfyTopic != "" {
					notifyState = "ntfy topic configured"
				}
				fmt.Fprintln(stdout, renderStatusLine("Notifications", statusInfo, notifyState, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(stdout, line)
				}
				manager := workflow.NewManager(cfg, store, logging.NewNop())
				for _, health := range manager.Health(cmd.Context()) {
					kind := statusOK
					if !health.Ready {
						kind = statusError
					}
					fmt.Fprintln(stdout, renderStatusLine(health.Name, kind, health.Detail, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(stdout, line)
				}
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return fmt.Errorf("read queue health: %w", err)
				}
				if summary.Total == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"pending", strconv.Itoa(summary.Pending)},
					{"processing", strconv.Itoa(summary.Processing)},
					{"finalized", strconv.Itoa(summary.Finalized)},
					{"failed", strconv.Itoa(summary.Failed)},
					{"total", strconv.Itoa(summary.Total)},
				}
				fmt.Fprintln(stdout, renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
