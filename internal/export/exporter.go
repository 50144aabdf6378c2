package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angle-app/angle/internal/logging"
	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/timeline"
)

const ContentTypeMP4 = "video/mp4"

// Request is a validated export job. Clips are owned by the request; the
// caller must not mutate them while the export runs.
type Request struct {
	VideoLocator string
	VideoTrim    timeline.VideoTrim
	AudioTrim    timeline.VideoTrim
	Clips        []timeline.AudioClip
}

// FromSnapshot builds a request from an editor session snapshot.
func FromSnapshot(snap timeline.Snapshot, locator string) Request {
	return Request{
		VideoLocator: locator,
		VideoTrim:    snap.Trim,
		AudioTrim:    snap.AudioTrim,
		Clips:        snap.Clips,
	}
}

// Result is the finished file, read fully into memory.
type Result struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
	ClipsMixed  int
	Elapsed     time.Duration
}

type Config struct {
	TempDir string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Exporter runs the two-stage trim and mix pipeline.
type Exporter struct {
	tool     media.Tool
	resolver *Resolver
	cfg      Config

	readFile func(string) ([]byte, error)
}

func NewExporter(tool media.Tool, resolver *Resolver, cfg Config) *Exporter {
	return &Exporter{
		tool:     tool,
		resolver: resolver,
		cfg:      cfg,
		readFile: os.ReadFile,
	}
}

// Export produces the trimmed and mixed video. Every temporary file it
// creates is removed before it returns, on success or failure.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req.VideoTrim.Start = math.Max(0, req.VideoTrim.Start)
	req.AudioTrim.Start = math.Max(0, req.AudioTrim.Start)
	if req.VideoTrim.Duration() <= 0 || math.IsNaN(req.VideoTrim.Duration()) {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidTrim, req.VideoTrim.Start, req.VideoTrim.End)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	logger := logging.WithExportID(e.cfg.Logger, id)

	sc, err := NewScratch(e.cfg.TempDir, logger)
	if err != nil {
		return nil, err
	}
	defer sc.Cleanup()

	source, err := e.resolver.Resolve(ctx, req.VideoLocator, sc)
	if err != nil {
		logger.Warn("source video not resolved", "error", err)
		return nil, err
	}

	clipPaths, err := e.persistClips(ctx, req.Clips, sc, logger)
	if err != nil {
		return nil, err
	}

	var exportClips []AudioExportClip
	for i, clip := range req.Clips {
		p := clipPaths[i]
		if p == "" {
			continue
		}
		ec := AdjustForExport(clip, req.VideoTrim)
		if ec == nil {
			logger.Info("audio clip outside trim window, dropped", "clip_id", clip.ID)
			continue
		}
		ec.Path = p
		exportClips = append(exportClips, *ec)
	}

	hasAudio, err := e.tool.HasAudioStream(ctx, source)
	if err != nil {
		logger.Warn("audio stream probe failed, assuming none", "error", err)
		hasAudio = false
	}

	segment := sc.Path("segment", ".mp4")
	if err := e.runStage(ctx, "extract", BuildExtract(source, req.VideoTrim, segment), ErrSegmentExtractionFailed, logger); err != nil {
		return nil, err
	}

	output := sc.Path("export", ".mp4")
	in := MixInput{
		SegmentPath:    segment,
		HasNativeAudio: hasAudio,
		Clips:          exportClips,
		TrimDuration:   req.VideoTrim.Duration(),
		OutputPath:     output,
	}
	if len(exportClips) > 0 {
		in.ScriptPath = sc.Path("filter", ".txt")
	} else {
		in.MainAudio = MainAudioTrimFor(req.VideoTrim, req.AudioTrim)
	}

	plan := BuildMix(in)
	if plan.FilterScript != "" {
		if err := os.WriteFile(in.ScriptPath, []byte(plan.FilterScript), 0600); err != nil {
			return nil, fmt.Errorf("write filter script: %w", err)
		}
	}
	if err := e.runStage(ctx, "encode", plan.Command, ErrEncodeFailed, logger); err != nil {
		return nil, err
	}

	data, err := e.readFile(output)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	elapsed := time.Since(start)
	logger.Info("export complete",
		"bytes", len(data),
		"clips_mixed", len(exportClips),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Result{
		ID:          id,
		Filename:    "export-" + id + ".mp4",
		ContentType: ContentTypeMP4,
		Data:        data,
		ClipsMixed:  len(exportClips),
		Elapsed:     elapsed,
	}, nil
}

// persistClips writes clip payloads to scratch files in parallel. The result
// is indexed like clips; skipped clips have an empty path. Of several clips
// sharing an id only the first is kept.
func (e *Exporter) persistClips(ctx context.Context, clips []timeline.AudioClip, sc *Scratch, logger *slog.Logger) ([]string, error) {
	paths := make([]string, len(clips))
	seen := make(map[string]bool, len(clips))
	g, _ := errgroup.WithContext(ctx)

	for i, clip := range clips {
		if clip.ID == "" || len(clip.Source) == 0 {
			logger.Warn("skipping audio clip", "error", &InvalidClipError{ClipID: clip.ID, Reason: "no payload"})
			continue
		}
		if seen[clip.ID] {
			logger.Warn("skipping audio clip", "error", &InvalidClipError{ClipID: clip.ID, Reason: "duplicate id"})
			continue
		}
		seen[clip.ID] = true

		p := sc.Path("clip-"+SanitizeName(clip.ID, 48), ".webm")
		paths[i] = p
		src := clip.Source
		g.Go(func() error {
			if err := os.WriteFile(p, src, 0600); err != nil {
				return fmt.Errorf("write audio clip: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *Exporter) runStage(ctx context.Context, stage string, cmd media.Command, sentinel error, logger *slog.Logger) error {
	res := e.tool.Run(ctx, cmd)
	if res.IsSuccess() && isFile(cmd.Output) {
		return nil
	}

	exitCode := res.ExitCode
	if exitCode == 0 {
		exitCode = -1
	}
	err := &StageError{
		Stage:      stage,
		Command:    cmd.String(),
		StderrTail: res.StderrTail,
		ExitCode:   exitCode,
		sentinel:   sentinel,
	}
	logger.Error("export stage failed",
		"stage", stage,
		"command", err.Command,
		"exit_code", exitCode,
		"stderr_tail", res.StderrTail,
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", err, ctxErr)
	}
	return err
}
