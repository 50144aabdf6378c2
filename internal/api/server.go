package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angle-app/angle/internal/export"
	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/render"
	"github.com/angle-app/angle/internal/store"
	"github.com/angle-app/angle/internal/timeline"
)

// Exporter runs one export pipeline.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// ClipServer writes an audio clip payload honoring Range requests.
type ClipServer interface {
	ServeClip(w http.ResponseWriter, r *http.Request, data []byte) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	Store      *store.Service
	Sessions   *timeline.Manager
	Exporter   Exporter
	ClipServer ClipServer
	Render     render.Client
	Doctor     *media.CachedDoctor
	Logger     *slog.Logger
	StartTime  time.Time
	Version    string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
