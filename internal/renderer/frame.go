package renderer

import (
	"github.com/ivlev/cutstudio/internal/effects"
	"github.com/ivlev/cutstudio/internal/timeline"
)

// Instruction is what one active element contributes to a frame.
type Instruction struct {
	Element   timeline.Element
	Transform effects.Transform
	Opacity   float64
	Gain      float64
	// MediaTime is the source-relative position of Video and Audio elements.
	MediaTime float64
}

// Visual reports whether the instruction paints anything. Audio is mixed, never painted.
func (in Instruction) Visual() bool {
	return in.Element.Kind != timeline.KindAudio
}

// Frame is the render instruction set for one evaluation time, in paint order
// (lowest track first).
type Frame struct {
	Time         float64
	Instructions []Instruction
}

// Find returns the instruction for an element id.
func (f Frame) Find(id string) (Instruction, bool) {
	for _, in := range f.Instructions {
		if in.Element.ID == id {
			return in, true
		}
	}
	return Instruction{}, false
}
