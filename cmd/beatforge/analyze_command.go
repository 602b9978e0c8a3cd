package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"beatforge/internal/beatgrid"
	"beatforge/internal/config"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/queue"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Detect beats in an audio track and persist the beat grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				audioPath, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}

				analyzer := beatgrid.NewAnalyzer(
					beatgrid.NewAubioTracker(cfg.BeatTrackBinary()),
					ffmpeg.NewRunner(cfg.FFmpegBinary()),
					logging.NewNop(),
				)
				grid, err := analyzer.Analyze(cmd.Context(), audioPath)
				if err != nil {
					return err
				}

				key := layout.BaseName(audioPath)
				if err := store.SaveBeatTimes(cmd.Context(), key, grid.BeatTimes); err != nil {
					return fmt.Errorf("persist beat grid: %w", err)
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Analyzed %s\n", audioPath)
				fmt.Fprintf(stdout, "  Beats detected: %d\n", grid.TotalBeats())
				fmt.Fprintf(stdout, "  Tempo:          %.2f BPM\n", grid.BPM)
				fmt.Fprintf(stdout, "  Stored as:      %s\n", key)
				return nil
			})
		},
	}
}
