package renderer

import (
	"github.com/ivlev/cutstudio/internal/effects"
	"github.com/ivlev/cutstudio/internal/timeline"
)

// Progress is the clamped position of t within the element, 0 at start and 1 at end.
func Progress(el timeline.Element, t float64) float64 {
	if el.Duration <= 0 {
		return 0
	}
	return timeline.Clamp01((t - el.StartTime) / el.Duration)
}

// Resolve computes the visual transform and fade of el at global time t.
//
// Resolve is pure: the same element, time and canvas width always yield the same
// transform, so preview and export agree frame for frame. The random Glitch jitter is
// not part of it; callers layer effects.Jitter on top.
func Resolve(el timeline.Element, t, canvasWidth float64) effects.Transform {
	tr := effects.Base(el)
	if e, ok := effects.Lookup(el.Transition()); ok {
		e.Apply(Progress(el, t), canvasWidth, &tr)
	}
	tr.FadeMultiplier = effects.Fade(t-el.StartTime, el.Duration, el.FadeIn, el.FadeOut)
	return tr
}

// PaintOpacity is the final layer alpha: element opacity × fade × transition multiplier.
func PaintOpacity(el timeline.Element, tr effects.Transform) float64 {
	return timeline.Clamp01(el.Opacity * tr.FadeMultiplier * tr.OpacityMultiplier)
}

// AudioGain is the final gain: element volume × fade. Elements without audio get 0.
func AudioGain(el timeline.Element, tr effects.Transform) float64 {
	return timeline.Clamp01(el.Volume() * tr.FadeMultiplier)
}

// MediaTime maps timeline time to source time for scrubbable elements.
func MediaTime(el timeline.Element, t float64) float64 {
	if el.Media == nil {
		return 0
	}
	return el.Media.TrimStart + (t-el.StartTime)*el.Media.PlaybackRate
}
