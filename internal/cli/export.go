package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/angle-app/angle/internal/config"
	"github.com/angle-app/angle/internal/export"
	"github.com/angle-app/angle/internal/logging"
	"github.com/angle-app/angle/internal/media"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <manifest.json>",
		Short: "Export a timeline described by a JSON manifest to an MP4",
		Long: "The manifest has the same shape as the POST /api/export body. " +
			"Audio clips are base64 encoded in blobBase64.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return runExport(cmd, args[0], out)
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default: export-<id>.mp4 next to the manifest)")
	return cmd
}

func runExport(cmd *cobra.Command, manifestPath, out string) error {
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

	if out != "" {
		if err := export.ValidateOutputPath(out); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exporter := newExporter(cfg, newTool(cfg, logger), logger)
	res, err := exporter.Export(ctx, req)
	if err != nil {
		return err
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(manifestPath), res.Filename)
	}
	if err := os.WriteFile(out, res.Data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(export.ExportResponse{
		Status:     "ok",
		Filename:   res.Filename,
		OutputPath: out,
		Bytes:      len(res.Data),
		ClipsMixed: res.ClipsMixed,
	})
}

func loadManifest(path string) (export.ExportRequest, error) {
	var req export.ExportRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse manifest: %w", err)
	}
	if req.VideoPath == "" {
		return req, fmt.Errorf("manifest has no videoPath")
	}
	return req, nil
}

func newTool(cfg config.Config, logger *slog.Logger) *media.FFmpeg {
	return media.NewFFmpeg(media.Config{
		FFmpegPath:  cfg.FFmpegPath(),
		FFprobePath: cfg.FFprobePath(),
		FFplayPath:  cfg.FFplayPath(),
		Logger:      logger,
	})
}

func newExporter(cfg config.Config, tool media.Tool, logger *slog.Logger) *export.Exporter {
	resolver := export.NewResolver(cfg.PublicDir(), cfg.WorkerURL(), logger)
	return export.NewExporter(tool, resolver, export.Config{
		TempDir: cfg.TempDir(),
		Timeout: cfg.ExportTimeout(),
		Logger:  logger,
	})
}
