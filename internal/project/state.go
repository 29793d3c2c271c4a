package project

import (
	"errors"
	"math"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// Aspect is the canvas orientation of a project.
type Aspect string

const (
	AspectLandscape Aspect = "landscape"
	AspectPortrait  Aspect = "portrait"
)

const (
	// MinDuration is the floor of the derived project duration.
	MinDuration = 10.0

	DefaultZoom = 50.0 // pixels per second
	MinZoom     = 5.0
	MaxZoom     = 500.0
)

var (
	ErrNotFound    = errors.New("element not found")
	ErrDuplicateID = errors.New("duplicate id")

	ErrPlayheadMoved = errors.New("playhead moved")
)

// State is the single source of truth of an editing session.
type State struct {
	Elements  []timeline.Element     // insertion order
	Library   []timeline.LibraryItem // insertion order
	Playhead  float64
	Playing   bool
	Selection map[string]bool
	Zoom      float64
	Aspect    Aspect
}

// NewState returns an empty landscape project.
func NewState() State {
	return State{
		Selection: make(map[string]bool),
		Zoom:      DefaultZoom,
		Aspect:    AspectLandscape,
	}
}

// Duration is the latest element end time, never below MinDuration.
func (s State) Duration() float64 {
	return math.Max(MinDuration, timeline.ContentExtent(s.Elements))
}

// Element looks an element up by id.
func (s State) Element(id string) (timeline.Element, bool) {
	if i := s.index(id); i >= 0 {
		return s.Elements[i], true
	}
	return timeline.Element{}, false
}

// IsSelected reports whether id is part of the current selection.
func (s State) IsSelected(id string) bool {
	return s.Selection[id]
}

// SelectedIDs returns the selection in element insertion order.
func (s State) SelectedIDs() []string {
	var ids []string
	for _, el := range s.Elements {
		if s.Selection[el.ID] {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

// LibraryItem looks a library item up by id.
func (s State) LibraryItem(id string) (timeline.LibraryItem, bool) {
	for _, it := range s.Library {
		if it.ID == id {
			return it, true
		}
	}
	return timeline.LibraryItem{}, false
}

// Copy returns a deep copy; snapshots handed to the scheduler never alias the store.
func (s State) Copy() State {
	c := s
	c.Elements = make([]timeline.Element, len(s.Elements))
	for i, el := range s.Elements {
		c.Elements[i] = el.Copy()
	}
	c.Library = make([]timeline.LibraryItem, len(s.Library))
	for i, it := range s.Library {
		c.Library[i] = it
		if it.Duration != nil {
			d := *it.Duration
			c.Library[i].Duration = &d
		}
	}
	c.Selection = make(map[string]bool, len(s.Selection))
	for id, ok := range s.Selection {
		if ok {
			c.Selection[id] = true
		}
	}
	return c
}

func (s State) index(id string) int {
	for i, el := range s.Elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}
