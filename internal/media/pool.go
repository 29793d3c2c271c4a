package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// Factory opens the handle for a media src.
type Factory func(src string) (Handle, error)

// ClipFactory opens ffmpeg clips decoded to fit inside maxW×maxH.
func ClipFactory(ctx context.Context, clock Clock, maxW, maxH int, fps float64) Factory {
	return func(src string) (Handle, error) {
		return OpenClip(ctx, src, clock, maxW, maxH, fps)
	}
}

// Pool keeps one handle per element id. Each placement of a source gets its own handle
// so two elements on the same file can sit at different source times.
type Pool struct {
	mu      sync.Mutex
	factory Factory
	handles map[string]Handle
	failed  map[string]error // by element id, cleared when src changes
}

func NewPool(factory Factory) *Pool {
	return &Pool{
		factory: factory,
		handles: make(map[string]Handle),
		failed:  make(map[string]error),
	}
}

// Get returns the handle for el, opening it on first use. A failed open is remembered so
// it is not retried every tick.
func (p *Pool) Get(el timeline.Element) (Handle, error) {
	if !el.Kind.Scrubbable() {
		return nil, fmt.Errorf("element %s (%s) has no media", el.ID, el.Kind)
	}
	src := el.Src()

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[el.ID]; ok {
		if h.Src() == src {
			return h, nil
		}
		h.Close()
		delete(p.handles, el.ID)
		delete(p.failed, el.ID)
	}
	if err, ok := p.failed[el.ID]; ok {
		return nil, err
	}
	h, err := p.factory(src)
	if err != nil {
		err = fmt.Errorf("open %s: %w", src, err)
		p.failed[el.ID] = err
		return nil, err
	}
	p.handles[el.ID] = h
	return h, nil
}

// Lookup returns an already opened handle.
func (p *Pool) Lookup(id string) (Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[id]
	return h, ok
}

// Each calls fn for every open handle.
func (p *Pool) Each(fn func(id string, h Handle)) {
	p.mu.Lock()
	snapshot := make(map[string]Handle, len(p.handles))
	for id, h := range p.handles {
		snapshot[id] = h
	}
	p.mu.Unlock()
	for id, h := range snapshot {
		fn(id, h)
	}
}

// Prune closes handles of elements that no longer exist.
func (p *Pool) Prune(live []timeline.Element) {
	keep := make(map[string]bool, len(live))
	for _, el := range live {
		keep[el.ID] = true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, h := range p.handles {
		if !keep[id] {
			h.Close()
			delete(p.handles, id)
		}
	}
	for id := range p.failed {
		if !keep[id] {
			delete(p.failed, id)
		}
	}
}

// VideoFrame implements renderer.VideoProvider.
func (p *Pool) VideoFrame(el timeline.Element) (image.Image, error) {
	p.mu.Lock()
	h, ok := p.handles[el.ID]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("element %s: %w", el.ID, ErrNoFrame)
	}
	fs, ok := h.(FrameSource)
	if !ok {
		return nil, fmt.Errorf("%s does not produce frames", h.Src())
	}
	return fs.Frame()
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for id, h := range p.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.handles, id)
	}
	return errors.Join(errs...)
}
