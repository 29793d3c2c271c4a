// Package interaction turns pointer gestures on the timeline into project intents.
package interaction

import (
	"math"

	"github.com/ivlev/cutstudio/internal/config"
	"github.com/ivlev/cutstudio/internal/timeline"
)

// Point is a position in timeline pixels; x = 0 is time 0, y = 0 the top of track 0's gap.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in timeline pixels.
type Rect struct {
	X, Y, W, H float64
}

// RectBetween normalises two corners, so the drag direction does not matter.
func RectBetween(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// Intersects is the AABB overlap test. Touching edges do not count.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Geometry is the pixel layout of the timeline.
type Geometry struct {
	Zoom        float64 // pixels per second
	TrackHeight float64
	TrackGap    float64
	SnapPx      float64
	ClickPx     float64
	HandlePx    float64 // width of the resize grip at each edge
}

func GeometryFrom(t config.Timeline, zoom float64) Geometry {
	return Geometry{
		Zoom:        zoom,
		TrackHeight: t.TrackHeight,
		TrackGap:    t.TrackGap,
		SnapPx:      t.SnapPx,
		ClickPx:     t.ClickPx,
		HandlePx:    6,
	}
}

// ElementRect is where el is drawn.
func (g Geometry) ElementRect(el timeline.Element) Rect {
	return Rect{
		X: el.StartTime * g.Zoom,
		Y: float64(el.TrackID)*(g.TrackHeight+g.TrackGap) + g.TrackGap,
		W: el.Duration * g.Zoom,
		H: g.TrackHeight,
	}
}

// TimeAt converts a pixel x to seconds.
func (g Geometry) TimeAt(x float64) float64 {
	return math.Max(0, x/g.Zoom)
}

// RowDelta converts a vertical drag to whole tracks.
func (g Geometry) RowDelta(dy float64) int {
	return int(math.Round(dy / (g.TrackHeight + g.TrackGap)))
}

// SnapThreshold is the snap distance in seconds at the current zoom.
func (g Geometry) SnapThreshold() float64 {
	return g.SnapPx / g.Zoom
}
