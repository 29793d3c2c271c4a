package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/renderer"
)

// Sink receives every evaluated frame, e.g. a preview surface.
type Sink interface {
	Present(f renderer.Frame) error
}

type SinkFunc func(f renderer.Frame) error

func (fn SinkFunc) Present(f renderer.Frame) error { return fn(f) }

// TickerFunc starts a periodic tick source and returns it with its stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Player runs interactive playback: t = playStartOffset + (now - playStartWall).
type Player struct {
	store  *project.Store
	comp   *Compositor
	sink   Sink
	period time.Duration
	clock  media.Clock
	ticker TickerFunc

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	offset    float64
	startWall time.Time
	published float64 // last playhead written by the loop
}

func NewPlayer(store *project.Store, comp *Compositor, sink Sink, fps int) *Player {
	if fps <= 0 {
		fps = 30
	}
	return &Player{
		store:  store,
		comp:   comp,
		sink:   sink,
		period: time.Second / time.Duration(fps),
		clock:  media.SystemClock,
		ticker: systemTicker,
	}
}

// WithClock swaps the time sources; tests drive playback by hand.
func (p *Player) WithClock(clock media.Clock, ticker TickerFunc) *Player {
	p.clock = clock
	p.ticker = ticker
	return p
}

// Play starts the loop from the current playhead. Playing at or past the end restarts
// from 0. Calling Play while playing is a no-op.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return nil
	}
	snap := p.store.Snapshot()
	start := snap.Playhead
	if start >= snap.Duration() {
		start = 0
	}
	if err := p.store.Dispatch(project.SetPlayhead{Time: start}, project.SetPlaying{Playing: true}); err != nil {
		p.mu.Unlock()
		return err
	}
	p.offset, p.startWall, p.published = start, p.clock.Now(), start

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.loop(ctx, done)
	return nil
}

// Pause stops the loop, waits for it to exit and leaves the preview on the paused frame.
func (p *Player) Pause() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the loop has stopped, either paused or at the end.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Playing reports whether the loop is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Seek moves the playhead. While playing the loop re-anchors on its next tick; while
// paused a scrubbing frame is evaluated and presented right away.
func (p *Player) Seek(t float64) error {
	if err := p.store.Dispatch(project.SetPlayhead{Time: t}); err != nil {
		return err
	}
	if p.Playing() {
		return nil
	}
	snap := p.store.Snapshot()
	return p.present(p.comp.Tick(snap, snap.Playhead, ModeScrubbing))
}

func (p *Player) loop(ctx context.Context, done chan struct{}) {
	ticks, stop := p.ticker(p.period)
	defer func() {
		stop()
		p.finish()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
		// cancellation is observed before any work of the tick
		if ctx.Err() != nil {
			return
		}

		snap := p.store.Snapshot()
		if !snap.Playing {
			return
		}

		p.mu.Lock()
		if snap.Playhead != p.published {
			// moved by someone else, e.g. a timeline click
			p.offset, p.startWall = snap.Playhead, p.clock.Now()
		}
		t := p.offset + p.clock.Now().Sub(p.startWall).Seconds()
		p.mu.Unlock()
		end := snap.Duration()
		if t >= end {
			t = end
		}

		// a seek since the snapshot wins; the next tick re-anchors on it
		err := p.store.Dispatch(project.AdvancePlayhead{From: snap.Playhead, To: t})
		if errors.Is(err, project.ErrPlayheadMoved) {
			continue
		}
		p.mu.Lock()
		p.published = t
		p.mu.Unlock()

		if t >= end {
			return
		}
		snap.Playhead = t
		if err := p.present(p.comp.Tick(snap, t, ModePlaying)); err != nil {
			log.Printf("[!] Preview frame %.3fs: %v", t, err)
		}
	}
}

// finish flips to paused and presents a scrubbing frame so inactive media is paused too.
func (p *Player) finish() {
	p.store.Dispatch(project.SetPlaying{Playing: false})
	snap := p.store.Snapshot()
	if err := p.present(p.comp.Tick(snap, snap.Playhead, ModeScrubbing)); err != nil {
		log.Printf("[!] Preview frame %.3fs: %v", snap.Playhead, err)
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
}

func (p *Player) present(f renderer.Frame) error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Present(f)
}
