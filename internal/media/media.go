// Package media models the playable sources behind Video and Audio elements.
package media

import (
	"errors"
	"image"
	"sync"
	"time"
)

var ErrNoFrame = errors.New("no frame decoded")

// Handle is the controllable playback state of one media source. Times are seconds of
// source time.
type Handle interface {
	Src() string
	CurrentTime() float64
	// Duration is the source length, 0 when unknown.
	Duration() float64
	Seek(t float64) error
	Play() error
	Pause()
	Paused() bool
	SetPlaybackRate(rate float64)
	SetMuted(muted bool)
	Muted() bool
	Close() error
}

// FrameSource is a Handle that can produce the picture at its current time.
type FrameSource interface {
	Handle
	Frame() (image.Image, error)
}

// Clock abstracts wall time so playback can be driven by a virtual clock during export.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// VirtualClock only moves when advanced.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewVirtualClock() *VirtualClock {
	return &VirtualClock{now: time.Unix(0, 0)}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
