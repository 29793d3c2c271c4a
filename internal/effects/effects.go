package effects

import (
	"math"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// Transform is the visual state of one element at one evaluation time.
type Transform struct {
	X, Y              float64 // offset from canvas centre, canvas pixels
	Rotation          float64 // degrees
	Scale             float64
	OpacityMultiplier float64 // from the procedural transition
	FadeMultiplier    float64 // from fade-in / fade-out
}

// Base returns the element's own placement with neutral multipliers.
func Base(el timeline.Element) Transform {
	return Transform{
		X:                 el.X,
		Y:                 el.Y,
		Rotation:          el.Rotation,
		Scale:             el.Scale,
		OpacityMultiplier: 1,
		FadeMultiplier:    1,
	}
}

// Effect is a deterministic procedural transition driven by clip progress in [0,1].
type Effect interface {
	Apply(progress, canvasWidth float64, tr *Transform)
}

// EffectFunc adapts a function to Effect.
type EffectFunc func(progress, canvasWidth float64, tr *Transform)

func (f EffectFunc) Apply(progress, canvasWidth float64, tr *Transform) {
	f(progress, canvasWidth, tr)
}

var registry = map[timeline.Transition]Effect{
	timeline.TransitionSpin:       EffectFunc(spin),
	timeline.TransitionSwipeLeft:  EffectFunc(swipeLeft),
	timeline.TransitionSwipeRight: EffectFunc(swipeRight),
	timeline.TransitionFadeBlack:  EffectFunc(dip),
	timeline.TransitionFadeWhite:  EffectFunc(dip),
}

// Lookup returns the deterministic effect for a transition. Glitch has none: its jitter
// is random and applied separately (see Jitter).
func Lookup(tr timeline.Transition) (Effect, bool) {
	e, ok := registry[tr]
	return e, ok
}

// Two full turns; scale is 75% at both ends and 100% at the midpoint.
func spin(p, _ float64, tr *Transform) {
	tr.Rotation += p * 720
	tr.Scale *= 1 - math.Abs(p-0.5)*0.5
}

// Off-right at 0, centred at 0.5, off-left at 1.
func swipeLeft(p, w float64, tr *Transform) {
	tr.X += w - p*2*w
}

func swipeRight(p, w float64, tr *Transform) {
	tr.X -= w - p*2*w
}

// Triangular 0 -> 1 -> 0; Fade Black / Fade White are dip overlays, not crossfades.
func dip(p, _ float64, tr *Transform) {
	tr.OpacityMultiplier = 1 - math.Abs(p-0.5)*2
}
