package timeline

import "fmt"

type Marker struct {
	Seconds  float64 `json:"seconds"`
	Position float64 `json:"position"`
	Label    string  `json:"label"`
}

// MarkerInterval picks the ruler spacing for a timeline of the given length.
func MarkerInterval(duration float64) float64 {
	switch {
	case duration <= 30:
		return 1
	case duration <= 60:
		return 5
	case duration <= 300:
		return 15
	default:
		return 30
	}
}

func Markers(duration float64) []Marker {
	if duration <= 0 {
		return nil
	}
	step := MarkerInterval(duration)
	var out []Marker
	for i := 0; float64(i)*step <= duration; i++ {
		sec := float64(i) * step
		out = append(out, Marker{
			Seconds:  sec,
			Position: sec / duration,
			Label:    FormatClock(sec),
		})
	}
	return out
}

// FormatClock renders seconds as MM:SS.
func FormatClock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
