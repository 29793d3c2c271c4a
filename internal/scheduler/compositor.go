// Package scheduler turns a project snapshot and a time into a render frame and keeps
// the media handles of active elements in step with it.
package scheduler

import (
	"log"
	"math"
	"sort"
	"sync"

	"github.com/ivlev/cutstudio/internal/config"
	"github.com/ivlev/cutstudio/internal/effects"
	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/renderer"
	"github.com/ivlev/cutstudio/internal/timeline"
)

// Mode selects the drift policy of a tick.
type Mode int

const (
	ModePlaying Mode = iota
	ModeScrubbing
	ModeExport
)

func (m Mode) String() string {
	switch m {
	case ModePlaying:
		return "playing"
	case ModeScrubbing:
		return "scrubbing"
	case ModeExport:
		return "export"
	}
	return "unknown"
}

// Tolerances are drift bands in seconds of source time.
type Tolerances struct {
	Playing   float64
	Jump      float64 // timeline discontinuity that forces a seek while playing
	Scrubbing float64
	Export    float64
}

func TolerancesFrom(p config.Playback) Tolerances {
	return Tolerances{Playing: p.DriftPlaying, Jump: p.JumpThreshold, Scrubbing: p.DriftScrubbing, Export: p.DriftExport}
}

func (t Tolerances) forMode(m Mode) float64 {
	switch m {
	case ModePlaying:
		return t.Playing
	case ModeExport:
		return t.Export
	default:
		return t.Scrubbing
	}
}

// Handles is where the compositor finds media handles. *media.Pool implements it.
type Handles interface {
	Get(el timeline.Element) (media.Handle, error)
	Each(fn func(id string, h media.Handle))
}

// Compositor evaluates frames. It is used by one loop at a time.
type Compositor struct {
	CanvasWidth float64
	FPS         float64
	Tol         Tolerances
	Media       Handles // nil disables media driving
	Rand        effects.RandomSource

	mu      sync.Mutex
	lastT   float64
	hasLast bool
	jitter  map[string]effects.Jitter
	warned  map[string]bool
}

func NewCompositor(cfg *config.Config, handles Handles) *Compositor {
	return &Compositor{
		CanvasWidth: float64(cfg.Canvas.Width),
		FPS:         float64(cfg.Canvas.FPS),
		Tol:         TolerancesFrom(cfg.Playback),
		Media:       handles,
		Rand:        effects.NewLockedRand(0),
		jitter:      make(map[string]effects.Jitter),
		warned:      make(map[string]bool),
	}
}

// Reset forgets the previous evaluation time, held jitter and logged warnings.
func (c *Compositor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasLast = false
	c.jitter = make(map[string]effects.Jitter)
	c.warned = make(map[string]bool)
}

// Active returns the elements active at t in paint order: track ascending, insertion
// order within a track.
func Active(elements []timeline.Element, t float64) []timeline.Element {
	var active []timeline.Element
	for _, el := range elements {
		if timeline.IsActiveAt(el, t) {
			active = append(active, el)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].TrackID < active[j].TrackID })
	return active
}

// Tick evaluates s at time t. Media failures never fail a tick: the instruction is still
// emitted and the painter holds whatever frame the handle last produced.
func (c *Compositor) Tick(s project.State, t float64, mode Mode) renderer.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jitter == nil {
		c.jitter = make(map[string]effects.Jitter)
		c.warned = make(map[string]bool)
	}

	jumped := c.hasLast && math.Abs(t-c.lastT) > c.Tol.Jump
	c.lastT, c.hasLast = t, true

	active := Active(s.Elements, t)
	frame := renderer.Frame{Time: t, Instructions: make([]renderer.Instruction, 0, len(active))}
	live := make(map[string]bool, len(active))

	for _, el := range active {
		live[el.ID] = true
		tr := renderer.Resolve(el, t, c.CanvasWidth)
		c.glitch(el, mode, &tr)

		in := renderer.Instruction{
			Element:   el.Copy(),
			Transform: tr,
			Opacity:   renderer.PaintOpacity(el, tr),
			Gain:      renderer.AudioGain(el, tr),
		}
		if el.Kind.Scrubbable() {
			in.MediaTime = c.drive(el, t, mode, jumped)
		}
		frame.Instructions = append(frame.Instructions, in)
	}

	if c.Media != nil {
		c.Media.Each(func(id string, h media.Handle) {
			if live[id] {
				return
			}
			if !h.Paused() {
				h.Pause()
			}
			if mode == ModeExport && !h.Muted() {
				h.SetMuted(true)
			}
		})
	}
	return frame
}

// glitch rolls a fresh jitter while time is running and holds the last one otherwise.
func (c *Compositor) glitch(el timeline.Element, mode Mode, tr *effects.Transform) {
	if el.Transition() != timeline.TransitionGlitch {
		return
	}
	if mode != ModeScrubbing && c.Rand != nil {
		c.jitter[el.ID] = effects.NewJitter(c.Rand)
	}
	c.jitter[el.ID].Apply(tr)
}

// drive seeks and plays the element's handle and returns the target source time.
func (c *Compositor) drive(el timeline.Element, t float64, mode Mode, jumped bool) float64 {
	target := renderer.MediaTime(el, t)
	if c.Media == nil {
		return c.clampTarget(el, target, 0)
	}
	h, err := c.Media.Get(el)
	if err != nil {
		c.warnOnce(el.ID, "open", err)
		return c.clampTarget(el, target, 0)
	}
	target = c.clampTarget(el, target, h.Duration())

	h.SetPlaybackRate(el.Media.PlaybackRate)
	drift := math.Abs(h.CurrentTime() - target)
	if drift > c.Tol.forMode(mode) || (mode == ModePlaying && jumped) {
		if err := h.Seek(target); err != nil {
			c.warnOnce(el.ID, "seek", err)
		}
	}

	switch mode {
	case ModeScrubbing:
		if !h.Paused() {
			h.Pause()
		}
	default:
		if mode == ModeExport && h.Muted() {
			h.SetMuted(false)
		}
		if h.Paused() {
			if err := h.Play(); err != nil {
				c.warnOnce(el.ID, "play", err)
			}
		}
	}
	return target
}

// clampTarget holds the last frame when trimming and rate push the target past the
// source end.
func (c *Compositor) clampTarget(el timeline.Element, target, handleDuration float64) float64 {
	limit := el.Media.SourceDuration
	if limit <= 0 {
		limit = handleDuration
	}
	if limit > 0 {
		step := 0.0
		if c.FPS > 0 {
			step = 1 / c.FPS
		}
		target = math.Min(target, math.Max(0, limit-step))
	}
	return math.Max(0, target)
}

func (c *Compositor) warnOnce(id, op string, err error) {
	key := id + "/" + op
	if c.warned[key] {
		return
	}
	c.warned[key] = true
	log.Printf("[!] %s %s: %v", op, id, err)
}
