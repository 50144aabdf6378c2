package timeline

import "math"

// Candidate is recorded or imported audio that is not on the timeline yet.
type Candidate struct {
	Name     string
	Source   []byte
	Duration float64
}

// NeedsUserDecision is returned instead of a clip when the candidate is
// longer than the video. The caller either accepts AutoTrim or picks other
// audio.
type NeedsUserDecision struct {
	Overflow      float64 `json:"overflow"`
	Duration      float64 `json:"duration"`
	VideoDuration float64 `json:"video_duration"`
}

// Insert places a candidate at requestedStart. Clips that would run past the
// end of the video are pulled back so their tail is not clipped.
//
// The cap is the native video duration, not the effective timeline.
func Insert(c Candidate, requestedStart, videoDuration float64) (*AudioClip, *NeedsUserDecision) {
	if c.Duration > videoDuration {
		return nil, &NeedsUserDecision{
			Overflow:      c.Duration - videoDuration,
			Duration:      c.Duration,
			VideoDuration: videoDuration,
		}
	}

	start := math.Max(0, requestedStart)
	if start+c.Duration > videoDuration {
		start = math.Max(0, videoDuration-c.Duration)
	}

	return &AudioClip{
		ID:        NewClipID(),
		Name:      c.Name,
		Source:    c.Source,
		StartTime: start,
		Duration:  c.Duration,
	}, nil
}

// AutoTrim accepts the "trim to fit" choice: the clip is shortened to the
// video duration and its start is clamped so it ends inside the timeline.
func AutoTrim(c Candidate, requestedStart, videoDuration, timelineDuration float64) AudioClip {
	dur := math.Min(c.Duration, videoDuration)
	start := clamp(requestedStart, 0, timelineDuration-dur)
	return AudioClip{
		ID:        NewClipID(),
		Name:      c.Name,
		Source:    c.Source,
		StartTime: start,
		Duration:  dur,
	}
}
