package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"beatforge/internal/config"
	"beatforge/internal/queue"
)

func newDeliverablesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deliverables",
		Short: "List assembled music video deliverables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				deliverables, err := store.ListDeliverables(cmd.Context())
				if err != nil {
					return fmt.Errorf("list deliverables: %w", err)
				}

				stdout := cmd.OutOrStdout()
				if len(deliverables) == 0 {
					fmt.Fprintln(stdout, "No deliverables recorded")
					return nil
				}

				rows := make([][]string, 0, len(deliverables))
				for _, d := range deliverables {
					rows = append(rows, []string{
						strconv.FormatInt(d.ID, 10),
						filepath.Base(d.OutputPath),
						filepath.Base(d.AudioPath),
						strconv.Itoa(d.ClipCount),
						d.SyncMode,
						d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Output", "Track", "Clips", "Mode", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
