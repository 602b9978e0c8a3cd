package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"beatforge/internal/assembly"
	"beatforge/internal/beatgrid"
	"beatforge/internal/config"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/notifications"
	"beatforge/internal/queue"
	"beatforge/internal/watcher"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var clipsDir string
	var outputDir string
	var baseName string

	cmd := &cobra.Command{
		Use:   "assemble <audio-file>",
		Short: "Assemble a beat-synced music video from a track and a clip folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				audioPath, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				project := layout.New(cfg.Paths.ProjectDir)

				dir := strings.TrimSpace(clipsDir)
				if dir == "" {
					dir = project.EditAssets()
				}
				clips, err := collectClips(dir)
				if err != nil {
					return err
				}

				out := strings.TrimSpace(outputDir)
				if out == "" {
					out = project.Deliverables()
				}
				name := strings.TrimSpace(baseName)
				if name == "" {
					name = layout.BaseName(audioPath)
				}

				stdout := cmd.OutOrStdout()
				grid, gridWarning := loadGrid(cmd.Context(), store, audioPath)
				if gridWarning != "" {
					fmt.Fprintf(stdout, "warn: %s; using sequential fill\n", gridWarning)
				} else if grid == nil {
					fmt.Fprintln(stdout, "No beat grid stored for this track; using sequential fill")
				}

				logger, err := logging.New(logging.Options{
					Level:  cfg.Logging.Level,
					Format: cfg.Logging.Format,
				})
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				engine := assembly.NewEngine(cfg, logger)
				result, err := engine.Assemble(cmd.Context(), assembly.Request{
					AudioPath: audioPath,
					ClipPaths: clips,
					Grid:      grid,
					OutputDir: out,
					BaseName:  name,
				})
				if err != nil {
					return err
				}

				deliverable := &queue.Deliverable{
					OutputPath: result.OutputPath,
					AudioPath:  audioPath,
					ClipCount:  result.ClipCount,
					SyncMode:   result.SyncMode,
				}
				if err := store.RecordDeliverable(cmd.Context(), deliverable); err != nil {
					return fmt.Errorf("record deliverable: %w", err)
				}

				notifier := notifications.NewService(cfg)
				if err := notifier.NotifyDeliverableReady(cmd.Context(), result.OutputPath, result.ClipCount, result.SyncMode); err != nil {
					fmt.Fprintf(stdout, "warn: notification failed: %v\n", err)
				}

				fmt.Fprintf(stdout, "Assembled %s\n", result.OutputPath)
				fmt.Fprintf(stdout, "  Clips:    %d\n", result.ClipCount)
				fmt.Fprintf(stdout, "  Segments: %d\n", result.SegmentCount)
				fmt.Fprintf(stdout, "  Mode:     %s\n", result.SyncMode)
				fmt.Fprintf(stdout, "  Duration: %.2fs\n", result.Duration)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&clipsDir, "clips-dir", "", "Folder holding the source clips (default: the edit assets folder)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Folder for the finished video (default: the deliverables folder)")
	cmd.Flags().StringVar(&baseName, "name", "", "Base name for the deliverable (default: derived from the track)")
	return cmd
}

// collectClips walks dir and returns the video files in lexical order. Set
// folders under the edit assets area nest one level deep, so the walk is
// recursive.
func collectClips(dir string) ([]string, error) {
	var clips []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if kind, ok := watcher.KindForPath(path); ok && kind == queue.KindVideo {
			clips = append(clips, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan clips folder: %w", err)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("no video clips found in %s", dir)
	}
	sort.Strings(clips)
	return clips, nil
}

// loadGrid returns the persisted beat grid for the track, or nil when no
// analysis exists yet. An unreadable or corrupted grid also yields nil so the
// assembly can still run sequentially; the warning explains what happened.
func loadGrid(ctx context.Context, store *queue.Store, audioPath string) (grid *beatgrid.Grid, warning string) {
	beatTimes, err := store.LoadBeatTimes(ctx, layout.BaseName(audioPath))
	if err != nil {
		return nil, fmt.Sprintf("load beat grid: %v", err)
	}
	if beatTimes == nil {
		return nil, ""
	}
	grid, err = beatgrid.FromPersisted(beatTimes)
	if err != nil {
		return nil, fmt.Sprintf("stored beat grid is unusable: %v", err)
	}
	return grid, ""
}
