package timeline

import (
	"errors"
	"fmt"
	"math"
)

// MinDuration is the shortest clip the interaction engine lets a resize produce.
const MinDuration = 0.5

// ErrInvalidPlacement is returned by Validate for elements violating the placement invariants.
var ErrInvalidPlacement = errors.New("invalid placement")

// EndTime is the exclusive end of the element on the timeline.
func EndTime(el Element) float64 {
	return el.StartTime + el.Duration
}

// IsActiveAt reports whether t falls in [StartTime, EndTime). Adjacent clips never both
// claim their shared boundary.
func IsActiveAt(el Element, t float64) bool {
	return t >= el.StartTime && t < EndTime(el)
}

// ContentExtent is the latest end time among elements, 0 for an empty timeline.
func ContentExtent(elements []Element) float64 {
	extent := 0.0
	for _, el := range elements {
		extent = math.Max(extent, EndTime(el))
	}
	return extent
}

// ClampStart keeps a start time on the timeline.
func ClampStart(start float64) float64 {
	return math.Max(0, start)
}

// ClampTrack keeps a track index non-negative.
func ClampTrack(track int) int {
	if track < 0 {
		return 0
	}
	return track
}

// ClampDuration enforces MinDuration.
func ClampDuration(d float64) float64 {
	return math.Max(MinDuration, d)
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Validate checks the model invariants and that exactly the payload matching Kind is set.
func Validate(el Element) error {
	if el.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPlacement)
	}
	if !(el.Duration > 0) {
		return fmt.Errorf("%w: element %s duration %.3f must be > 0", ErrInvalidPlacement, el.ID, el.Duration)
	}
	if el.StartTime < 0 {
		return fmt.Errorf("%w: element %s start %.3f must be >= 0", ErrInvalidPlacement, el.ID, el.StartTime)
	}
	if el.TrackID < 0 {
		return fmt.Errorf("%w: element %s track %d must be >= 0", ErrInvalidPlacement, el.ID, el.TrackID)
	}
	if el.FadeIn < 0 || el.FadeOut < 0 {
		return fmt.Errorf("%w: element %s has negative fade", ErrInvalidPlacement, el.ID)
	}
	if el.Scale < 0 {
		return fmt.Errorf("%w: element %s scale must be >= 0", ErrInvalidPlacement, el.ID)
	}

	payloads := 0
	for _, set := range []bool{el.Media != nil, el.Image != nil, el.Text != nil} {
		if set {
			payloads++
		}
	}
	if payloads != 1 {
		return fmt.Errorf("element %s: expected exactly one payload, got %d", el.ID, payloads)
	}

	switch el.Kind {
	case KindVideo, KindAudio:
		if el.Media == nil {
			return fmt.Errorf("element %s: %s requires media payload", el.ID, el.Kind)
		}
		if el.Media.TrimStart < 0 {
			return fmt.Errorf("%w: element %s trim start must be >= 0", ErrInvalidPlacement, el.ID)
		}
		if !(el.Media.PlaybackRate > 0) {
			return fmt.Errorf("element %s: playback rate must be > 0", el.ID)
		}
	case KindImage:
		if el.Image == nil {
			return fmt.Errorf("element %s: image requires image payload", el.ID)
		}
		if el.Image.Src == "" && el.Image.Transition == TransitionNone {
			return fmt.Errorf("element %s: image needs a src or a transition", el.ID)
		}
	case KindText:
		if el.Text == nil {
			return fmt.Errorf("element %s: text requires text payload", el.ID)
		}
	default:
		return fmt.Errorf("element %s: unknown kind %q", el.ID, el.Kind)
	}
	return nil
}
