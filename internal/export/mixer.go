package export

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/timeline"
	"github.com/ivlev/cutstudio/internal/video"
)

var ErrNoAudioStream = errors.New("source has no audio stream")

// AudioProbe reports whether src carries audio.
type AudioProbe func(src string) (bool, error)

// SourceNode is the mixer's tap on one media handle. It is created once per handle and
// kept for the lifetime of the Mixer, across export runs.
type SourceNode struct {
	Src      string
	HasAudio bool
	err      error
}

// GainNode routes one element's audio into the mix and records its gain curve. Gain
// nodes live for a single export run.
type GainNode struct {
	Element timeline.Element
	Source  *SourceNode
	Gain    video.Automation
}

// Mixer is the shared audio graph of the export pipeline.
type Mixer struct {
	mu      sync.Mutex
	probe   AudioProbe
	sources map[media.Handle]*SourceNode
	gains   map[string]*GainNode
	order   []string
}

func NewMixer(probe AudioProbe) *Mixer {
	return &Mixer{
		probe:   probe,
		sources: make(map[media.Handle]*SourceNode),
		gains:   make(map[string]*GainNode),
	}
}

// Source returns the cached source node of h, creating it on first use.
func (m *Mixer) Source(h media.Handle) *SourceNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceLocked(h)
}

func (m *Mixer) sourceLocked(h media.Handle) *SourceNode {
	if n, ok := m.sources[h]; ok {
		return n
	}
	n := &SourceNode{Src: h.Src()}
	if m.probe != nil {
		n.HasAudio, n.err = m.probe(h.Src())
	}
	m.sources[h] = n
	return n
}

// SourceCount is the number of cached source nodes.
func (m *Mixer) SourceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

// Connect attaches a gain node for el fed by h's source node.
func (m *Mixer) Connect(el timeline.Element, h media.Handle) error {
	if el.Media == nil {
		return fmt.Errorf("element %s has no media", el.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gains[el.ID]; ok {
		return fmt.Errorf("element %s already connected", el.ID)
	}
	src := m.sourceLocked(h)
	if src.err != nil {
		return fmt.Errorf("probe %s: %w", src.Src, src.err)
	}
	if !src.HasAudio {
		return fmt.Errorf("%s: %w", src.Src, ErrNoAudioStream)
	}
	m.gains[el.ID] = &GainNode{Element: el.Copy(), Source: src}
	m.order = append(m.order, el.ID)
	return nil
}

// SetGain records the gain of a connected element at timeline time t. Unconnected ids
// are ignored.
func (m *Mixer) SetGain(id string, t, gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gains[id]; ok {
		g.Gain.Record(t, gain)
	}
}

// Connected lists the ids of connected elements, sorted.
func (m *Mixer) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.gains))
	for id := range m.gains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tracks renders the connected gain nodes as mux inputs, in connection order.
func (m *Mixer) Tracks() []video.AudioTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	tracks := make([]video.AudioTrack, 0, len(m.order))
	for _, id := range m.order {
		g := m.gains[id]
		gain := g.Gain
		tracks = append(tracks, video.AudioTrack{
			Src:       g.Source.Src,
			Start:     g.Element.StartTime,
			Duration:  g.Element.Duration,
			TrimStart: g.Element.Media.TrimStart,
			Rate:      g.Element.Media.PlaybackRate,
			Gain:      &gain,
		})
	}
	return tracks
}

// DisconnectAll drops the run's gain nodes. Source nodes stay cached.
func (m *Mixer) DisconnectAll() {
	m.mu.Lock()
	m.gains = make(map[string]*GainNode)
	m.order = nil
	m.mu.Unlock()
}
