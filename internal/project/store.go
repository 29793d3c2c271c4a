package project

import (
	"sync"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// Store owns the project state. All mutation goes through Dispatch; readers get
// deep-copied snapshots.
type Store struct {
	mu    sync.RWMutex
	state State
	env   env
	subs  []func(State)
}

// NewStore wraps initial. Element ids for splits and pastes come from timeline.NewID.
func NewStore(initial State) *Store {
	if initial.Selection == nil {
		initial.Selection = make(map[string]bool)
	}
	if initial.Zoom == 0 {
		initial.Zoom = DefaultZoom
	}
	if initial.Aspect == "" {
		initial.Aspect = AspectLandscape
	}
	return &Store{state: initial.Copy(), env: env{newID: timeline.NewID}}
}

// WithIDs replaces the id generator. Tests use it for stable ids.
func (s *Store) WithIDs(newID func() string) *Store {
	s.mu.Lock()
	s.env.newID = newID
	s.mu.Unlock()
	return s
}

// Dispatch applies intents in order. Each intent is atomic; the first failure stops
// the batch and is returned, earlier intents stay applied.
func (s *Store) Dispatch(intents ...Intent) error {
	s.mu.Lock()
	var err error
	changed := false
	for _, in := range intents {
		work := s.state.Copy()
		if err = in.apply(&work, &s.env); err != nil {
			break
		}
		s.state = work
		changed = true
	}
	var snap State
	subs := s.subs
	if changed && len(subs) > 0 {
		snap = s.state.Copy()
	}
	s.mu.Unlock()

	if changed {
		for _, fn := range subs {
			fn(snap)
		}
	}
	return err
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Copy()
}

// Subscribe registers fn to receive a snapshot after every successful dispatch.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}
