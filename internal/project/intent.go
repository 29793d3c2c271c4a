package project

import (
	"fmt"
	"math"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// Intent is one atomic mutation of the project state. Intents either apply fully or
// leave the state untouched.
type Intent interface {
	apply(s *State, env *env) error
}

type env struct {
	newID func() string
}

// Patch is a partial element update; nil fields are left unchanged. Media and text
// fields are ignored for elements of other kinds.
type Patch struct {
	Name      *string
	StartTime *float64
	Duration  *float64
	TrackID   *int
	Opacity   *float64
	Scale     *float64
	Rotation  *float64
	X, Y      *float64
	FadeIn    *float64
	FadeOut   *float64

	Volume       *float64
	TrimStart    *float64
	PlaybackRate *float64

	Text     *string
	FontSize *float64
	Color    *string
}

func (p Patch) applyTo(el *timeline.Element) error {
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	if p.Name != nil {
		el.Name = *p.Name
	}
	setF(&el.StartTime, p.StartTime)
	setF(&el.Duration, p.Duration)
	if p.TrackID != nil {
		el.TrackID = *p.TrackID
	}
	if p.Opacity != nil {
		el.Opacity = timeline.Clamp01(*p.Opacity)
	}
	setF(&el.Scale, p.Scale)
	setF(&el.Rotation, p.Rotation)
	setF(&el.X, p.X)
	setF(&el.Y, p.Y)
	setF(&el.FadeIn, p.FadeIn)
	setF(&el.FadeOut, p.FadeOut)

	if el.Media != nil {
		if p.Volume != nil {
			el.Media.Volume = timeline.Clamp01(*p.Volume)
		}
		setF(&el.Media.TrimStart, p.TrimStart)
		if p.PlaybackRate != nil {
			if err := timeline.SetPlaybackRate(el, *p.PlaybackRate); err != nil {
				return err
			}
		}
	}
	if el.Text != nil {
		if p.Text != nil {
			el.Text.Text = *p.Text
		}
		setF(&el.Text.FontSize, p.FontSize)
		if p.Color != nil {
			el.Text.Color = *p.Color
		}
	}
	return timeline.Validate(*el)
}

// AddElement appends a new element to the timeline.
type AddElement struct {
	Element timeline.Element
}

func (a AddElement) apply(s *State, _ *env) error {
	if err := timeline.Validate(a.Element); err != nil {
		return err
	}
	if s.index(a.Element.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.Element.ID)
	}
	s.Elements = append(s.Elements, a.Element.Copy())
	return nil
}

// UpdateElement patches a single element.
type UpdateElement struct {
	ID    string
	Patch Patch
}

func (u UpdateElement) apply(s *State, e *env) error {
	return UpdateElements{IDs: []string{u.ID}, Patch: u.Patch}.apply(s, e)
}

// UpdateElements applies the same patch to several elements.
type UpdateElements struct {
	IDs   []string
	Patch Patch
}

func (u UpdateElements) apply(s *State, _ *env) error {
	for _, id := range u.IDs {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := u.Patch.applyTo(&s.Elements[i]); err != nil {
			return err
		}
	}
	return nil
}

// Move is the new position of one element in a bulk move.
type Move struct {
	ID        string
	StartTime float64
	TrackID   int
}

// MoveElements repositions several elements at once (group drag).
type MoveElements struct {
	Moves []Move
}

func (m MoveElements) apply(s *State, _ *env) error {
	for _, mv := range m.Moves {
		i := s.index(mv.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, mv.ID)
		}
		s.Elements[i].StartTime = timeline.ClampStart(mv.StartTime)
		s.Elements[i].TrackID = timeline.ClampTrack(mv.TrackID)
	}
	return nil
}

// RemoveElements deletes elements and drops them from the selection.
type RemoveElements struct {
	IDs []string
}

func (r RemoveElements) apply(s *State, _ *env) error {
	drop := make(map[string]bool, len(r.IDs))
	for _, id := range r.IDs {
		if s.index(id) < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		drop[id] = true
	}
	kept := s.Elements[:0]
	for _, el := range s.Elements {
		if !drop[el.ID] {
			kept = append(kept, el)
		}
	}
	s.Elements = kept
	for id := range drop {
		delete(s.Selection, id)
	}
	return nil
}

// SetSelection replaces the selection. Unknown ids are ignored.
type SetSelection struct {
	IDs []string
}

func (sel SetSelection) apply(s *State, _ *env) error {
	s.Selection = make(map[string]bool, len(sel.IDs))
	for _, id := range sel.IDs {
		if s.index(id) >= 0 {
			s.Selection[id] = true
		}
	}
	return nil
}

// SetPlayhead moves the playhead; negative times clamp to 0.
type SetPlayhead struct {
	Time float64
}

func (p SetPlayhead) apply(s *State, _ *env) error {
	s.Playhead = math.Max(0, p.Time)
	return nil
}

// AdvancePlayhead moves the playhead only while it still sits at From. A seek landing
// between a playback loop's read and its write fails the advance with ErrPlayheadMoved.
type AdvancePlayhead struct {
	From, To float64
}

func (p AdvancePlayhead) apply(s *State, _ *env) error {
	if s.Playhead != p.From {
		return fmt.Errorf("%w: at %.3fs, expected %.3fs", ErrPlayheadMoved, s.Playhead, p.From)
	}
	s.Playhead = math.Max(0, p.To)
	return nil
}

// TogglePlay flips between playing and paused.
type TogglePlay struct{}

func (TogglePlay) apply(s *State, _ *env) error {
	s.Playing = !s.Playing
	return nil
}

// SetPlaying sets the play flag explicitly.
type SetPlaying struct {
	Playing bool
}

func (p SetPlaying) apply(s *State, _ *env) error {
	s.Playing = p.Playing
	return nil
}

// SetZoom sets the timeline zoom in pixels per second.
type SetZoom struct {
	PixelsPerSecond float64
}

func (z SetZoom) apply(s *State, _ *env) error {
	if !(z.PixelsPerSecond > 0) {
		return fmt.Errorf("zoom must be > 0, got %f", z.PixelsPerSecond)
	}
	s.Zoom = math.Max(MinZoom, math.Min(MaxZoom, z.PixelsPerSecond))
	return nil
}

// SetAspect switches the canvas orientation.
type SetAspect struct {
	Aspect Aspect
}

func (a SetAspect) apply(s *State, _ *env) error {
	if a.Aspect != AspectLandscape && a.Aspect != AspectPortrait {
		return fmt.Errorf("unknown aspect %q", a.Aspect)
	}
	s.Aspect = a.Aspect
	return nil
}

// SplitAt cuts an element at Time. The right part is inserted directly after the left
// one and gets NewID, or a generated id when NewID is empty.
type SplitAt struct {
	ID    string
	Time  float64
	NewID string
}

func (sp SplitAt) apply(s *State, e *env) error {
	i := s.index(sp.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sp.ID)
	}
	newID := sp.NewID
	if newID == "" {
		newID = e.newID()
	}
	if s.index(newID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, newID)
	}
	left, right, err := timeline.Split(s.Elements[i], sp.Time, newID)
	if err != nil {
		return err
	}
	s.Elements[i] = left
	s.Elements = append(s.Elements[:i+1], append([]timeline.Element{right}, s.Elements[i+1:]...)...)
	return nil
}

// PasteElements inserts copies of Elements with fresh ids. The earliest copy starts at
// At and the relative offsets between copies are kept. The copies become the selection.
type PasteElements struct {
	Elements []timeline.Element
	At       float64
}

func (p PasteElements) apply(s *State, e *env) error {
	if len(p.Elements) == 0 {
		return nil
	}
	earliest := math.Inf(1)
	for _, el := range p.Elements {
		earliest = math.Min(earliest, el.StartTime)
	}
	sel := make(map[string]bool, len(p.Elements))
	for _, el := range p.Elements {
		c := timeline.Clone(el, e.newID(), p.At+(el.StartTime-earliest))
		if err := timeline.Validate(c); err != nil {
			return err
		}
		s.Elements = append(s.Elements, c)
		sel[c.ID] = true
	}
	s.Selection = sel
	return nil
}

// AddLibraryItem registers an asset in the project library.
type AddLibraryItem struct {
	Item timeline.LibraryItem
}

func (a AddLibraryItem) apply(s *State, _ *env) error {
	if a.Item.ID == "" {
		return fmt.Errorf("library item needs an id")
	}
	if _, ok := s.LibraryItem(a.Item.ID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.Item.ID)
	}
	s.Library = append(s.Library, a.Item)
	return nil
}

// PlaceLibraryItem drops a copy of a library item on the timeline.
type PlaceLibraryItem struct {
	ItemID  string
	Start   float64
	TrackID int
}

func (p PlaceLibraryItem) apply(s *State, e *env) error {
	item, ok := s.LibraryItem(p.ItemID)
	if !ok {
		return fmt.Errorf("library item %s not found", p.ItemID)
	}
	return AddElement{Element: timeline.FromLibrary(item, e.newID(), p.Start, p.TrackID)}.apply(s, e)
}
