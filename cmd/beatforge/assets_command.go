package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"beatforge/internal/config"
	"beatforge/internal/queue"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List tracked assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var statuses []queue.Status
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					status, ok := queue.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					statuses = append(statuses, status)
				}

				assets, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return fmt.Errorf("list assets: %w", err)
				}

				stdout := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(stdout, "No assets tracked")
					return nil
				}

				rows := make([][]string, 0, len(assets))
				for _, asset := range assets {
					detail := asset.ErrorMessage
					if len(detail) > 60 {
						detail = detail[:60] + "…"
					}
					rows = append(rows, []string{
						strconv.FormatInt(asset.ID, 10),
						asset.BaseName,
						string(asset.Kind),
						string(asset.Status),
						asset.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
						detail,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Name", "Kind", "Status", "Updated", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show assets in the given status")
	return cmd
}
