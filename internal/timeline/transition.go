package timeline

import "strings"

// Transition identifies a procedural transition overlay. It is independent of the
// user-editable element name.
type Transition string

const (
	TransitionNone       Transition = ""
	TransitionSpin       Transition = "spin"
	TransitionGlitch     Transition = "glitch"
	TransitionSwipeLeft  Transition = "swipe-left"
	TransitionSwipeRight Transition = "swipe-right"
	TransitionFadeBlack  Transition = "fade-black"
	TransitionFadeWhite  Transition = "fade-white"
)

var transitionNames = map[Transition]string{
	TransitionSpin:       "Spin",
	TransitionGlitch:     "Glitch",
	TransitionSwipeLeft:  "Swipe Left",
	TransitionSwipeRight: "Swipe Right",
	TransitionFadeBlack:  "Fade Black",
	TransitionFadeWhite:  "Fade White",
}

// Transitions lists every known transition in display order.
func Transitions() []Transition {
	return []Transition{
		TransitionSpin,
		TransitionGlitch,
		TransitionSwipeLeft,
		TransitionSwipeRight,
		TransitionFadeBlack,
		TransitionFadeWhite,
	}
}

// DisplayName is the label shown in the library ("Swipe Left").
func (t Transition) DisplayName() string {
	return transitionNames[t]
}

// Known reports whether t is one of the built-in transitions.
func (t Transition) Known() bool {
	_, ok := transitionNames[t]
	return ok
}

// ParseTransition maps either an identifier ("swipe-left") or a library display name
// ("Swipe Left") to a Transition. Unknown names yield TransitionNone and false.
func ParseTransition(name string) (Transition, bool) {
	n := strings.TrimSpace(name)
	if t := Transition(strings.ToLower(n)); t.Known() {
		return t, true
	}
	for t, display := range transitionNames {
		if strings.EqualFold(display, n) {
			return t, true
		}
	}
	return TransitionNone, false
}
