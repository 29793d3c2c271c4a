package interaction

import (
	"math"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// SnapPoints lists snap targets in checking order: 0, the playhead, then start and end
// of every element not being dragged.
func SnapPoints(elements []timeline.Element, dragged map[string]bool, playhead float64) []float64 {
	points := []float64{0, playhead}
	for _, el := range elements {
		if dragged[el.ID] {
			continue
		}
		points = append(points, el.StartTime, timeline.EndTime(el))
	}
	return points
}

// Snap adjusts a proposed start so that either the start or the end of a clip of length
// duration lands exactly on a snap point. The start is checked against every point
// before the end is; the first point within threshold wins.
func Snap(start, duration float64, points []float64, threshold float64) (float64, bool) {
	for _, p := range points {
		if math.Abs(start-p) < threshold {
			return p, true
		}
	}
	end := start + duration
	for _, p := range points {
		if math.Abs(end-p) < threshold {
			return p - duration, true
		}
	}
	return start, false
}
