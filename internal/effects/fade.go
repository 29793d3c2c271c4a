package effects

import "math"

// FadeBranch names which ramp Fade selected.
type FadeBranch int

const (
	FadeNone FadeBranch = iota
	FadeInBranch
	FadeOutBranch
)

// Branch reports which ramp applies at clip-local time clipTime.
//
// The ramps are exclusive. Fade-in is tried first; when the two windows overlap the
// fade-out ramp takes over only from the clip midpoint on.
func Branch(clipTime, duration, fadeIn, fadeOut float64) FadeBranch {
	if fadeOut > 0 && clipTime > duration-fadeOut && clipTime >= duration/2 {
		return FadeOutBranch
	}
	if fadeIn > 0 && clipTime < fadeIn {
		return FadeInBranch
	}
	if fadeOut > 0 && clipTime > duration-fadeOut {
		return FadeOutBranch
	}
	return FadeNone
}

// Fade returns the fade multiplier at clip-local time clipTime.
func Fade(clipTime, duration, fadeIn, fadeOut float64) float64 {
	switch Branch(clipTime, duration, fadeIn, fadeOut) {
	case FadeInBranch:
		return math.Max(0, clipTime/fadeIn)
	case FadeOutBranch:
		return math.Max(0, (duration-clipTime)/fadeOut)
	}
	return 1
}
