package timeline

import "fmt"

// Split cuts el at timeline time at and returns the left and right parts. The left part
// keeps el's identity; the right part gets newID. For media elements the right part's
// TrimStart advances by the source time consumed by the left part.
//
// Fade-in stays with the left part and fade-out with the right part.
func Split(el Element, at float64, newID string) (Element, Element, error) {
	if at <= el.StartTime || at >= EndTime(el) {
		return Element{}, Element{}, fmt.Errorf("split point %.3f outside element %s [%.3f, %.3f)",
			at, el.ID, el.StartTime, EndTime(el))
	}
	if newID == "" || newID == el.ID {
		return Element{}, Element{}, fmt.Errorf("split of %s needs a fresh id", el.ID)
	}

	left := el.Copy()
	right := el.Copy()
	elapsed := at - el.StartTime

	left.Duration = elapsed
	left.FadeOut = 0

	right.ID = newID
	right.StartTime = at
	right.Duration = EndTime(el) - at
	right.FadeIn = 0
	if right.Media != nil {
		right.Media.TrimStart += elapsed * right.Media.PlaybackRate
	}
	return left, right, nil
}

// Clone copies el under a new identity, shifted to start at start. Used for paste and duplicate.
func Clone(el Element, newID string, start float64) Element {
	c := el.Copy()
	c.ID = newID
	c.StartTime = ClampStart(start)
	return c
}

// SetPlaybackRate changes the speed of a media element keeping the consumed source length
// constant: duration = contentLength / rate.
func SetPlaybackRate(el *Element, rate float64) error {
	if el.Media == nil {
		return fmt.Errorf("element %s has no media", el.ID)
	}
	if !(rate > 0) {
		return fmt.Errorf("playback rate must be > 0, got %f", rate)
	}
	content := el.Duration * el.Media.PlaybackRate
	el.Media.PlaybackRate = rate
	el.Duration = content / rate
	return nil
}
