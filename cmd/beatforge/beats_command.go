package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"beatforge/internal/beatgrid"
	"beatforge/internal/config"
	"beatforge/internal/queue"
)

func newBeatsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "beats <asset-key>",
		Short: "Show the persisted beat grid for an analyzed track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				beatTimes, err := store.LoadBeatTimes(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("load beat grid: %w", err)
				}
				if beatTimes == nil {
					return fmt.Errorf("no beat grid stored for %q; run `beatforge analyze` first", args[0])
				}

				grid, err := beatgrid.FromPersisted(beatTimes)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Beat grid for %s\n", args[0])
				fmt.Fprintf(stdout, "  Beats: %d\n", grid.TotalBeats())
				fmt.Fprintf(stdout, "  Tempo: %.2f BPM\n", grid.BPM)

				shown := len(beatTimes)
				if limit > 0 && limit < shown {
					shown = limit
				}
				rows := make([][]string, 0, shown)
				for i := 0; i < shown; i++ {
					rows = append(rows, []string{
						strconv.Itoa(i),
						fmt.Sprintf("%.3f", beatTimes[i]),
					})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Beat", "Time (s)"}, rows, []columnAlignment{alignRight, alignRight}))
				if shown < len(beatTimes) {
					fmt.Fprintf(stdout, "… %d more beats\n", len(beatTimes)-shown)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 16, "Maximum beats to display (0 shows all)")
	return cmd
}
