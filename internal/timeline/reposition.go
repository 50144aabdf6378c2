package timeline

// Reposition returns the clip's new start after a drag of deltaSeconds,
// clamped so the clip stays on the timeline and never starts before zero.
func Reposition(clip AudioClip, deltaSeconds, timelineDuration float64) float64 {
	return clamp(clip.StartTime+deltaSeconds, 0, timelineDuration-clip.Duration)
}

// Drag tracks one drag gesture. Every update is computed from the start
// position captured when the gesture began plus the total displacement, so
// per-event rounding does not accumulate.
type Drag struct {
	clip             AudioClip
	timelineDuration float64
	pixelsPerSecond  float64
	originX          float64
}

func BeginDrag(clip AudioClip, timelineDuration, pixelsPerSecond, originX float64) *Drag {
	return &Drag{
		clip:             clip,
		timelineDuration: timelineDuration,
		pixelsPerSecond:  pixelsPerSecond,
		originX:          originX,
	}
}

func (d *Drag) ClipID() string {
	return d.clip.ID
}

func (d *Drag) OriginStart() float64 {
	return d.clip.StartTime
}

// Update returns the start time for the pointer at x.
func (d *Drag) Update(x float64) float64 {
	if d.pixelsPerSecond <= 0 {
		return d.clip.StartTime
	}
	return Reposition(d.clip, (x-d.originX)/d.pixelsPerSecond, d.timelineDuration)
}
