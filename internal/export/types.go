package export

import (
	"encoding/base64"
	"math"
	"strings"

	"github.com/angle-app/angle/internal/timeline"
)

// DefaultTrimEnd is used when a request carries no usable trim end.
const DefaultTrimEnd = 300

// ExportRequest is the JSON body of POST /api/export and of CLI manifests.
type ExportRequest struct {
	VideoPath      string      `json:"videoPath"`
	VideoTrimStart *float64    `json:"videoTrimStart"`
	VideoTrimEnd   *float64    `json:"videoTrimEnd"`
	AudioTrimStart *float64    `json:"audioTrimStart"`
	AudioTrimEnd   *float64    `json:"audioTrimEnd"`
	AudioClips     []ClipInput `json:"audioClips"`
}

type ClipInput struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	StartTime  float64 `json:"startTime"`
	Duration   float64 `json:"duration"`
	BlobBase64 string  `json:"blobBase64"`
}

// ExportResponse summarises a finished export for JSON clients such as the
// CLI and the export history.
type ExportResponse struct {
	Status     string `json:"status"`
	Filename   string `json:"filename"`
	OutputPath string `json:"output_path,omitempty"`
	Bytes      int    `json:"bytes"`
	ClipsMixed int    `json:"clips_mixed"`
}

// ToRequest decodes payloads, fills trim defaults and clamps trim starts to
// zero. Malformed clips are
// returned as errors alongside the request instead of failing it.
func (r ExportRequest) ToRequest() (Request, []error) {
	videoTrim := timeline.VideoTrim{
		Start: math.Max(0, floatOr(r.VideoTrimStart, 0)),
		End:   floatOr(r.VideoTrimEnd, DefaultTrimEnd),
	}
	audioTrim := timeline.VideoTrim{
		Start: math.Max(0, floatOr(r.AudioTrimStart, videoTrim.Start)),
		End:   floatOr(r.AudioTrimEnd, videoTrim.End),
	}

	req := Request{
		VideoLocator: strings.TrimSpace(r.VideoPath),
		VideoTrim:    videoTrim,
		AudioTrim:    audioTrim,
	}

	var dropped []error
	for _, in := range r.AudioClips {
		clip, err := in.toClip()
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		req.Clips = append(req.Clips, clip)
	}
	return req, dropped
}

func (c ClipInput) toClip() (timeline.AudioClip, error) {
	if c.ID == "" {
		return timeline.AudioClip{}, &InvalidClipError{Reason: "missing id"}
	}
	if c.BlobBase64 == "" {
		return timeline.AudioClip{}, &InvalidClipError{ClipID: c.ID, Reason: "no payload"}
	}
	if c.Duration <= 0 || math.IsNaN(c.Duration) || math.IsNaN(c.StartTime) {
		return timeline.AudioClip{}, &InvalidClipError{ClipID: c.ID, Reason: "invalid timing"}
	}

	data, err := DecodePayload(c.BlobBase64)
	if err != nil {
		return timeline.AudioClip{}, &InvalidClipError{ClipID: c.ID, Reason: "payload is not base64"}
	}

	return timeline.AudioClip{
		ID:        c.ID,
		Name:      c.Name,
		Source:    data,
		StartTime: c.StartTime,
		Duration:  c.Duration,
	}, nil
}

// DecodePayload accepts plain base64 or a base64 data URL.
func DecodePayload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// EncodePayload is the inverse of DecodePayload for plain base64.
func EncodePayload(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func floatOr(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return *v
}
