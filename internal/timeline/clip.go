// Package timeline holds the editor's clip model: the primary video's trim
// window and the audio overlay clips positioned on a virtual timeline that
// may run past the end of the video.
package timeline

import (
	"errors"
	"math"

	"github.com/google/uuid"
)

var ErrInvalidTrim = errors.New("trim end must be greater than trim start")

// VideoTrim is the kept sub-range of the source video, in seconds.
type VideoTrim struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (t VideoTrim) Duration() float64 {
	return t.End - t.Start
}

// Contains reports whether sec lies in [Start, End).
func (t VideoTrim) Contains(sec float64) bool {
	return sec >= t.Start && sec < t.End
}

// ClampTrim returns the trim window clamped into [0, limit].
func ClampTrim(start, end, limit float64) (VideoTrim, error) {
	if limit < 0 {
		limit = 0
	}
	start = clamp(start, 0, limit)
	end = clamp(end, 0, limit)
	if end <= start {
		return VideoTrim{}, ErrInvalidTrim
	}
	return VideoTrim{Start: start, End: end}, nil
}

// AudioClip is an overlay positioned on the timeline. Source is owned by the
// clip and never shared with another clip.
type AudioClip struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Source    []byte  `json:"-"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

func (c AudioClip) End() float64 {
	return c.StartTime + c.Duration
}

// Active reports whether the timeline position sec falls inside the clip.
func (c AudioClip) Active(sec float64) bool {
	return sec >= c.StartTime && sec < c.End()
}

// Clone returns a copy that does not share the source payload.
func (c AudioClip) Clone() AudioClip {
	out := c
	if c.Source != nil {
		out.Source = append([]byte(nil), c.Source...)
	}
	return out
}

func CloneClips(clips []AudioClip) []AudioClip {
	out := make([]AudioClip, len(clips))
	for i, c := range clips {
		out[i] = c.Clone()
	}
	return out
}

func NewClipID() string {
	return "audio-" + uuid.NewString()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
