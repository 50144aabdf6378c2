package timeline

import "math"

// PinTolerance is how close a bound must be to the previous resolved
// duration to count as pinned to it.
const PinTolerance = 0.1

// Resolve returns the effective duration of the composition: the video length
// or the furthest audio clip end, whichever is larger.
func Resolve(videoDuration float64, clips []AudioClip) float64 {
	d := videoDuration
	for _, c := range clips {
		d = math.Max(d, c.End())
	}
	return d
}

// ExtendBound moves bound to next only when it was pinned to prev. A bound the
// user pulled in on purpose stays where it is.
func ExtendBound(bound, prev, next float64) float64 {
	if next <= prev {
		return bound
	}
	if math.Abs(bound-prev) <= PinTolerance {
		return next
	}
	return bound
}
