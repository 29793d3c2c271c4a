package effects

import (
	"math/rand"
	"sync"
	"time"
)

const (
	glitchX        = 30.0
	glitchY        = 15.0
	glitchScale    = 0.05
	glitchRotation = 2.5
)

// Jitter is one random Glitch offset. The zero value is the identity.
type Jitter struct {
	X, Y       float64
	ScaleDelta float64
	Rotation   float64
}

// Apply adds the jitter on top of a resolved transform.
func (j Jitter) Apply(tr *Transform) {
	tr.X += j.X
	tr.Y += j.Y
	tr.Scale *= 1 + j.ScaleDelta
	tr.Rotation += j.Rotation
}

// RandomSource produces uniformly distributed floats in [0,1).
type RandomSource interface {
	Float64() float64
}

// NewJitter rolls a fresh jitter. Every call is independent; there is no interpolation
// between rolls.
func NewJitter(r RandomSource) Jitter {
	sym := func(amp float64) float64 { return (r.Float64()*2 - 1) * amp }
	return Jitter{
		X:          sym(glitchX),
		Y:          sym(glitchY),
		ScaleDelta: sym(glitchScale),
		Rotation:   sym(glitchRotation),
	}
}

// LockedRand is a RandomSource safe for use from the playback and export goroutines.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
