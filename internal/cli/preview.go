package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/angle-app/angle/internal/config"
	"github.com/angle-app/angle/internal/export"
	"github.com/angle-app/angle/internal/logging"
	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/playback"
	"github.com/angle-app/angle/internal/timeline"
)

func newPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <manifest.json>",
		Short: "Play a manifest's audio clips in sync with the trim window",
		Long: "Preview drives the playback controller from a wall clock and plays " +
			"each audio clip through ffplay when the clock enters its window.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, _ := cmd.Flags().GetBool("loop")
			tick, _ := cmd.Flags().GetDuration("tick")
			return runPreview(cmd, args[0], loop, tick)
		},
	}
	cmd.Flags().Bool("loop", false, "Loop the trim window until interrupted")
	cmd.Flags().Duration("tick", 250*time.Millisecond, "Time update interval")
	return cmd
}

func runPreview(cmd *cobra.Command, manifestPath string, loop bool, tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("tick must be positive")
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := os.MkdirAll(cfg.TempDir(), 0755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel())

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}
	req, dropped := manifest.ToRequest()
	for _, err := range dropped {
		logger.Warn("dropping invalid audio clip", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tool := newTool(cfg, logger)
	videoDuration := probeVideoDuration(ctx, cfg, tool, logger, req.VideoLocator, req.VideoTrim.End)

	effective := timeline.Resolve(videoDuration, req.Clips)
	trim, err := timeline.ClampTrim(req.VideoTrim.Start, req.VideoTrim.End, effective)
	if err != nil {
		return err
	}

	urls, err := playback.NewURLCache(filepath.Join(cfg.CacheDir(), "preview"), logger)
	if err != nil {
		return err
	}
	defer urls.Close()

	clock := playback.NewClock(effective)
	ctrl := playback.NewController(clock, media.NewFFplay(cfg.FFplayPath(), logger), urls, logger)
	defer ctrl.Close()

	ctrl.SetClips(req.Clips)
	ctrl.SetTrim(trim)
	ctrl.SetLooping(loop)

	fmt.Fprintf(cmd.OutOrStdout(), "previewing %s to %s (%d clips)\n",
		timeline.FormatClock(trim.Start), timeline.FormatClock(trim.End), len(req.Clips))

	clock.Seek(trim.Start)
	ctrl.OnSeek()
	clock.Play()

	err = playback.Drive(ctx, ctrl, clock, tick)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// probeVideoDuration resolves the video and asks ffprobe for its length,
// falling back when either step fails.
func probeVideoDuration(ctx context.Context, cfg config.Config, tool media.Tool, logger *slog.Logger, locator string, fallback float64) float64 {
	sc, err := export.NewScratch(cfg.TempDir(), logger)
	if err != nil {
		return fallback
	}
	defer sc.Cleanup()

	src, err := export.NewResolver(cfg.PublicDir(), cfg.WorkerURL(), logger).Resolve(ctx, locator, sc)
	if err != nil {
		logger.Warn("video not resolved, using trim end as duration", "error", err)
		return fallback
	}
	d, err := tool.ProbeDuration(ctx, src)
	if err != nil || d <= 0 {
		logger.Warn("duration probe failed, using trim end", "error", err)
		return fallback
	}
	return d
}
