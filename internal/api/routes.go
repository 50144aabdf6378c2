package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angle-app/angle/internal/render"
	"github.com/angle-app/angle/internal/store"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusHandler(cfg))
		r.Post("/export", exportHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))

		r.Get("/prompts", listPromptsHandler(cfg))
		r.Post("/prompts", createPromptHandler(cfg))

		r.Post("/render", renderHandler(cfg))

		r.Route("/projects/{id}", func(r chi.Router) {
			r.Delete("/", deleteProjectHandler(cfg))

			r.Get("/timeline", timelineHandler(cfg))
			r.Put("/timeline/video", setVideoHandler(cfg))
			r.Put("/timeline/trim", setTrimHandler(cfg))
			r.Post("/timeline/trim/reset", resetTrimHandler(cfg))
			r.Put("/timeline/loop", setLoopHandler(cfg))

			r.Post("/audio", insertAudioHandler(cfg))
			r.Delete("/audio", clearAudioHandler(cfg))
			r.Patch("/audio/{clipID}", moveAudioHandler(cfg))
			r.Delete("/audio/{clipID}", removeAudioHandler(cfg))
			r.With(LoopbackGuard()).Get("/audio/{clipID}/playback", clipPlaybackHandler(cfg))

			r.Post("/export", sessionExportHandler(cfg))
			r.Get("/exports", listExportsHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}
		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(r.Context())
			if err != nil {
				resp.Status = "degraded"
			}
			healthFromCaps(&resp, caps)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projects, err := cfg.Store.CountProjects(ctx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to count projects", "INTERNAL_ERROR")
			return
		}
		recent, err := cfg.Store.ListExports(ctx, "", 10)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := StatusResponse{Projects: projects, RecentExports: recent}
		if resp.RecentExports == nil {
			resp.RecentExports = []*store.ExportRecord{}
		}
		for _, e := range recent {
			if e.Status == store.ExportStatusRunning {
				resp.ExportsRunning++
			}
		}
		if cfg.Sessions != nil {
			resp.OpenSessions = cfg.Sessions.Len()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Store.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Store.CreateProject(r.Context(), req.Name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ProjectToResponse(p))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Store.DeleteProject(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		if cfg.Sessions != nil {
			cfg.Sessions.Drop(id)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listPromptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.URL.Query().Get("projectId")
		if projectID == "" {
			WriteError(w, http.StatusBadRequest, "projectId is required", "BAD_REQUEST")
			return
		}

		prompts, err := cfg.Store.ListPrompts(r.Context(), projectID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if prompts == nil {
			prompts = []*store.Prompt{}
		}
		WriteJSON(w, http.StatusOK, PromptsResponse{Prompts: prompts})
	}
}

func createPromptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePromptRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Store.AddPrompt(r.Context(), req.ProjectID, req.UsrMsg, req.LlmRes)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, p)
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Code == "" || req.SceneName == "" {
			WriteError(w, http.StatusBadRequest, "code and sceneName are required", "BAD_REQUEST")
			return
		}
		if cfg.Render == nil {
			WriteError(w, http.StatusServiceUnavailable, "render service not configured", "RENDER_UNAVAILABLE")
			return
		}

		ctx := r.Context()
		if req.ProjectID != "" {
			if _, err := cfg.Store.GetProject(ctx, req.ProjectID); err != nil {
				writeStoreError(w, err)
				return
			}
		}

		jobID := uuid.NewString()
		res, err := cfg.Render.Submit(ctx, render.Request{
			Code:      req.Code,
			SceneName: req.SceneName,
			JobID:     jobID,
			ProjectID: req.ProjectID,
		})
		if err != nil {
			cfg.Logger.Error("render failed", "job_id", jobID, "project_id", req.ProjectID, "error", err)
			var rerr *render.Error
			if errors.As(err, &rerr) && !rerr.IsRetryable() {
				WriteError(w, http.StatusBadRequest, "render rejected the scene", "RENDER_REJECTED")
				return
			}
			WriteError(w, http.StatusBadGateway, "render failed", "RENDER_FAILED")
			return
		}

		if res.VideoURL != "" && req.ProjectID != "" {
			if err := cfg.Store.SetProjectVideo(ctx, req.ProjectID, res.VideoURL); err != nil {
				cfg.Logger.Warn("failed to record rendered video", "project_id", req.ProjectID, "error", err)
			}
		}

		status := http.StatusOK
		if res.Pending {
			status = http.StatusAccepted
		}
		WriteJSON(w, status, RenderResponse{JobID: jobID, VideoURL: res.VideoURL, Pending: res.Pending})
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
	case errors.Is(err, store.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		WriteError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}
