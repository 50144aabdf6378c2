package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angle-app/angle/internal/export"
	"github.com/angle-app/angle/internal/logging"
	"github.com/angle-app/angle/internal/store"
	"github.com/angle-app/angle/internal/timeline"
)

// sessionFor loads the editor session of the project named in the URL.
// It writes the error response itself and returns nil on failure.
func sessionFor(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*store.Project, *timeline.Session) {
	id := chi.URLParam(r, "id")
	p, err := cfg.Store.GetProject(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return nil, nil
	}

	sess, err := cfg.Sessions.Get(r.Context(), id)
	if err != nil {
		cfg.Logger.Error("failed to open session", "project_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to load timeline", "INTERNAL_ERROR")
		return nil, nil
	}
	return p, sess
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}
		WriteJSON(w, http.StatusOK, sess.State())
	}
}

func setVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}

		var req SetVideoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := sess.SetVideoDuration(req.Duration); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if req.VideoPath != "" && req.VideoPath != p.VideoPath {
			if err := cfg.Store.SetProjectVideo(r.Context(), p.ID, req.VideoPath); err != nil {
				writeStoreError(w, err)
				return
			}
		}
		WriteJSON(w, http.StatusOK, sess.State())
	}
}

func setTrimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}

		var req TrimRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var err error
		if req.Audio {
			_, err = sess.SetAudioTrim(req.Start, req.End)
		} else {
			_, err = sess.SetTrim(req.Start, req.End)
		}
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, sess.State())
	}
}

func resetTrimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}
		sess.ResetTrim()
		WriteJSON(w, http.StatusOK, sess.State())
	}
}

func setLoopHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}

		var req LoopRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		sess.SetLooping(req.Looping)
		WriteJSON(w, http.StatusOK, sess.State())
	}
}

func insertAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}

		var req InsertAudioRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		data, err := export.DecodePayload(req.BlobBase64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "blobBase64 is not valid base64", "BAD_REQUEST")
			return
		}
		if req.Duration <= 0 {
			WriteError(w, http.StatusBadRequest, "duration must be positive", "BAD_REQUEST")
			return
		}

		candidate := timeline.Candidate{Name: req.Name, Source: data, Duration: req.Duration}
		clip, decision, err := sess.InsertAudio(r.Context(), candidate, req.StartTime, req.AutoTrim)
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		if decision != nil {
			WriteErrorDetails(w, http.StatusConflict,
				"audio is longer than the video; retry with autoTrim or choose other audio",
				"NEEDS_USER_DECISION", decision)
			return
		}

		logging.WithClipID(logging.WithProjectID(cfg.Logger, p.ID), clip.ID).Info("audio clip inserted",
			"start", clip.StartTime,
			"duration", clip.Duration,
			"auto_trimmed", req.AutoTrim && clip.Duration < req.Duration,
		)
		WriteJSON(w, http.StatusCreated, clip)
	}
}

func moveAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}

		var req MoveAudioRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clip, err := sess.MoveAudio(r.Context(), chi.URLParam(r, "clipID"), req.OriginStart, req.Delta)
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func removeAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}
		if err := sess.RemoveAudio(r.Context(), chi.URLParam(r, "clipID")); err != nil {
			writeTimelineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}
		if err := sess.ClearAudio(r.Context()); err != nil {
			writeTimelineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clipPlaybackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess := sessionFor(cfg, w, r)
		if sess == nil {
			return
		}

		clip, err := sess.Clip(chi.URLParam(r, "clipID"))
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		if err := cfg.ClipServer.ServeClip(w, r, clip.Source); err != nil {
			cfg.Logger.Error("clip playback error", "clip_id", clip.ID, "error", err)
		}
	}
}

func writeTimelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeline.ErrClipNotFound):
		WriteError(w, http.StatusNotFound, "audio clip not found", "NOT_FOUND")
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
	case errors.Is(err, timeline.ErrNoVideo):
		WriteError(w, http.StatusConflict, "video duration is not known yet", "NO_VIDEO")
	case errors.Is(err, timeline.ErrEmptyCandidate):
		WriteError(w, http.StatusBadRequest, "audio payload is empty", "BAD_REQUEST")
	case errors.Is(err, timeline.ErrInvalidTrim):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TRIM")
	default:
		WriteError(w, http.StatusInternalServerError, "failed to update timeline", "INTERNAL_ERROR")
	}
}
