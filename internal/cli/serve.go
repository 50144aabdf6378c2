package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/angle-app/angle/internal/api"
	"github.com/angle-app/angle/internal/config"
	"github.com/angle-app/angle/internal/db"
	"github.com/angle-app/angle/internal/logging"
	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/playback"
	"github.com/angle-app/angle/internal/render"
	"github.com/angle-app/angle/internal/store"
	"github.com/angle-app/angle/internal/timeline"
	"github.com/angle-app/angle/internal/ui"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the tray icon unless headless)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			headless, _ := cmd.Flags().GetBool("headless")
			return serve(headless)
		},
	}
	cmd.Flags().Bool("headless", false, "Do not show the system tray icon")
	return cmd
}

func serve(headlessFlag bool) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.TempDir(), cfg.CacheDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting angle", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())
	storeSvc := store.NewService(repo, logger)
	sessions := timeline.NewManager(store.NewClipStore(database.Conn()), logger)

	tool := newTool(cfg, logger)
	doctor := media.NewCachedDoctor(tool, logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial media tool probe failed", "error", err)
	} else if !caps.CanExport() {
		logger.Warn("ffmpeg or ffprobe not found, exports will fail")
	}
	initCancel()

	exporter := newExporter(cfg, tool, logger)

	var renderClient render.Client
	if cfg.RenderURL() != "" {
		renderClient = render.NewHTTPClient(cfg.RenderURL(), cfg.RenderToken(), logger)
		logger.Info("render service enabled", "base_url", cfg.RenderURL(), "token", logging.SanitizeToken(cfg.RenderToken()))
	} else {
		renderClient = render.NewStubClient(logger)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Store:      storeSvc,
		Sessions:   sessions,
		Exporter:   exporter,
		ClipServer: playback.NewClipServer(logger),
		Render:     renderClient,
		Doctor:     doctor,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
		Version:    config.Version,
	})

	fmt.Println()
	fmt.Printf("  Angle %s\n", config.Version)
	fmt.Printf("  API URL: http://%s\n", apiServer.Addr())
	fmt.Println()

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if headlessFlag || cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Status: storeSvc,
			Doctor: doctor,
			Logger: logging.WithComponent(logger, "tray"),
			URL:    "http://" + apiServer.Addr(),
			OnOpen: func() error {
				logger.Info("open editor requested from tray", "url", "http://"+apiServer.Addr())
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
