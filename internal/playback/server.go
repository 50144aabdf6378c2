package playback

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
)

const clipContentType = "audio/webm"

// ClipServer serves audio clip payloads with byte-range support so browser
// audio elements can seek inside them.
type ClipServer struct {
	logger *slog.Logger
}

func NewClipServer(logger *slog.Logger) *ClipServer {
	return &ClipServer{logger: logger}
}

// ServeClip writes payload, or the part of it named by the Range header.
// An unusable Range header falls back to the full payload.
func (s *ClipServer) ServeClip(w http.ResponseWriter, r *http.Request, payload []byte) error {
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", clipContentType)
	h.Set("Cache-Control", "no-store")

	span, err := spanOf(r.Header.Get("Range"), payload)
	switch {
	case errors.Is(err, ErrRangeNotSatisfiable):
		h.Set("Content-Range", "bytes */"+strconv.Itoa(len(payload)))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		s.logger.Debug("ignoring clip range", "range", r.Header.Get("Range"))
		span = nil
	case err != nil:
		return err
	}

	body := payload
	status := http.StatusOK
	if span != nil {
		body = span.slice(payload)
		status = http.StatusPartialContent
		h.Set("Content-Range", span.contentRange(len(payload)))
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return nil
	}
	_, err = w.Write(body)
	return err
}
