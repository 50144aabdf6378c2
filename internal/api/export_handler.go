package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angle-app/angle/internal/export"
	"github.com/angle-app/angle/internal/logging"
	"github.com/angle-app/angle/internal/store"
)

// exportHandler serves POST /api/export. The body carries the whole
// timeline, so no session is involved.
func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body export.ExportRequest
		if err := decodeJSON(w, r, &body); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if body.VideoPath == "" {
			WriteError(w, http.StatusBadRequest, "videoPath is required", "BAD_REQUEST")
			return
		}

		req, dropped := body.ToRequest()
		for _, err := range dropped {
			cfg.Logger.Warn("dropping invalid audio clip", "error", err, "request_id", requestID(r.Context()))
		}

		runExport(cfg, w, r, "", req)
	}
}

// sessionExportHandler exports a project's current timeline. Only one
// export per project may run at a time.
func sessionExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}
		if p.VideoPath == "" {
			WriteError(w, http.StatusConflict, "project has no video", "NO_VIDEO")
			return
		}
		if !sess.BeginExport() {
			WriteError(w, http.StatusConflict, export.ErrExportInFlight.Error(), "EXPORT_IN_FLIGHT")
			return
		}
		defer sess.EndExport()

		runExport(cfg, w, r, p.ID, export.FromSnapshot(sess.Snapshot(), p.VideoPath))
	}
}

func runExport(cfg ServerConfig, w http.ResponseWriter, r *http.Request, projectID string, req export.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(cfg.Logger, requestID(ctx))
	if projectID != "" {
		logger = logging.WithProjectID(logger, projectID)
	}

	rec, err := cfg.Store.StartExport(ctx, projectID)
	if err != nil {
		logger.Warn("export history unavailable", "error", err)
	}

	res, exportErr := cfg.Exporter.Export(ctx, req)

	if rec != nil {
		var filename string
		var size, mixed int
		if res != nil {
			filename, size, mixed = res.Filename, len(res.Data), res.ClipsMixed
		}
		// The request context may already be cancelled.
		if err := cfg.Store.FinishExport(context.WithoutCancel(ctx), rec, filename, size, mixed, exportErr); err != nil {
			logger.Warn("failed to record export result", "export_id", rec.ID, "error", err)
		}
	}

	if exportErr != nil {
		writeExportError(w, logger, exportErr)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", export.ContentDisposition(res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		logger.Warn("client went away during export download", "error", err)
	}
}

func writeExportError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("export failed", "error", err)

	var notFound *export.SourceNotFoundError
	switch {
	case errors.As(err, &notFound):
		WriteErrorDetails(w, http.StatusNotFound, "video not found: "+notFound.RequestedPath, "SOURCE_NOT_FOUND",
			map[string]any{"requestedPath": notFound.RequestedPath, "attempted": notFound.Attempted})
	case errors.Is(err, export.ErrInvalidTrim):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TRIM")
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, "export timed out", "EXPORT_TIMEOUT")
	default:
		WriteError(w, http.StatusInternalServerError, "failed to export video", "EXPORT_FAILED")
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		if projectID != "" {
			if _, err := cfg.Store.GetProject(r.Context(), projectID); err != nil {
				writeStoreError(w, err)
				return
			}
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := cfg.Store.ListExports(r.Context(), projectID, limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}
		resp := ExportsResponse{Exports: records}
		if resp.Exports == nil {
			resp.Exports = []*store.ExportRecord{}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
