// Package mediatest provides an in-memory media.Handle for tests.
package mediatest

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/ivlev/cutstudio/internal/media"
)

// Handle is a scriptable media.Handle. Its time only moves through Seek or Advance.
type Handle struct {
	mu       sync.Mutex
	src      string
	time     float64
	duration float64
	paused   bool
	muted    bool
	rate     float64
	closed   bool

	Seeks   []float64
	SeekErr error
	PlayErr error
	Color   color.RGBA
}

func New(src string, duration float64) *Handle {
	return &Handle{src: src, duration: duration, paused: true, rate: 1, Color: color.RGBA{G: 255, A: 255}}
}

// Factory opens a fresh fake for every src and records it.
type Factory struct {
	mu       sync.Mutex
	Duration float64
	Opened   map[string][]*Handle
	Fail     map[string]error
}

func NewFactory(duration float64) *Factory {
	return &Factory{Duration: duration, Opened: map[string][]*Handle{}, Fail: map[string]error{}}
}

func (f *Factory) Open(src string) (media.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail[src]; err != nil {
		return nil, err
	}
	h := New(src, f.Duration)
	f.Opened[src] = append(f.Opened[src], h)
	return h, nil
}

func (h *Handle) Src() string { return h.src }

func (h *Handle) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.time
}

// SetTime moves the handle without recording a seek, like decoder drift.
func (h *Handle) SetTime(t float64) {
	h.mu.Lock()
	h.time = t
	h.mu.Unlock()
}

// Advance moves time forward by d×rate when playing.
func (h *Handle) Advance(d float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.paused {
		h.time += d * h.rate
	}
}

func (h *Handle) Duration() float64 { return h.duration }

func (h *Handle) Seek(t float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.SeekErr != nil {
		return h.SeekErr
	}
	h.time = t
	h.Seeks = append(h.Seeks, t)
	return nil
}

// SeekCount is safe to call while a scheduler is ticking.
func (h *Handle) SeekCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Seeks)
}

func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.PlayErr != nil {
		return h.PlayErr
	}
	h.paused = false
	return nil
}

func (h *Handle) Pause() {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
}

func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *Handle) SetPlaybackRate(rate float64) {
	h.mu.Lock()
	h.rate = rate
	h.mu.Unlock()
}

func (h *Handle) Rate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *Handle) SetMuted(m bool) {
	h.mu.Lock()
	h.muted = m
	h.mu.Unlock()
}

func (h *Handle) Muted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.muted
}

func (h *Handle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Frame returns a 4×4 picture in Color.
func (h *Handle) Frame() (image.Image, error) {
	if h.Closed() {
		return nil, errors.New("closed")
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = h.Color.R, h.Color.G, h.Color.B, h.Color.A
	}
	return img, nil
}
