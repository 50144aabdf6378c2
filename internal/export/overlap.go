package export

import (
	"math"

	"github.com/angle-app/angle/internal/timeline"
)

// AudioExportClip is an audio clip re-expressed relative to the trimmed
// output. SourceOffset is how far into the clip's own audio the kept part
// begins, non-zero when the clip starts before the trim window.
type AudioExportClip struct {
	ID              string
	Name            string
	Path            string
	ExportStartTime float64
	ExportDuration  float64
	SourceOffset    float64
}

// AdjustForExport intersects the clip with the trim window. It returns nil
// when the clip lies entirely outside the window.
func AdjustForExport(clip timeline.AudioClip, trim timeline.VideoTrim) *AudioExportClip {
	clipEnd := clip.StartTime + clip.Duration
	overlapStart := math.Max(clip.StartTime, trim.Start)
	overlapEnd := math.Min(clipEnd, trim.End)
	if overlapEnd <= overlapStart {
		return nil
	}

	return &AudioExportClip{
		ID:              clip.ID,
		Name:            clip.Name,
		ExportStartTime: math.Max(0, overlapStart-trim.Start),
		ExportDuration:  overlapEnd - overlapStart,
		SourceOffset:    overlapStart - clip.StartTime,
	}
}
