package project

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ivlev/cutstudio/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func newTestStore(t *testing.T, els ...timeline.Element) *Store {
	t.Helper()
	s := NewStore(NewState()).WithIDs(seqIDs())
	for _, el := range els {
		require.NoError(t, s.Dispatch(AddElement{Element: el}))
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestDurationFloor(t *testing.T) {
	s := NewState()
	assert.Equal(t, MinDuration, s.Duration())

	s.Elements = []timeline.Element{timeline.NewImage("a", "a.png", 8, 6, 0)}
	assert.Equal(t, 14.0, s.Duration())
}

func TestAddRejectsDuplicatesAndInvalid(t *testing.T) {
	s := newTestStore(t, timeline.NewImage("a", "a.png", 0, 2, 0))

	err := s.Dispatch(AddElement{Element: timeline.NewImage("a", "b.png", 3, 2, 0)})
	assert.ErrorIs(t, err, ErrDuplicateID)

	bad := timeline.NewImage("b", "", 0, 2, 0)
	assert.Error(t, s.Dispatch(AddElement{Element: bad}))
	assert.Len(t, s.Snapshot().Elements, 1)
}

func TestUpdateIsAtomic(t *testing.T) {
	s := newTestStore(t,
		timeline.NewImage("a", "a.png", 0, 2, 0),
		timeline.NewImage("b", "b.png", 2, 2, 0),
	)

	err := s.Dispatch(UpdateElements{IDs: []string{"a", "missing"}, Patch: Patch{Opacity: ptr(0.3)}})
	assert.ErrorIs(t, err, ErrNotFound)

	a, _ := s.Snapshot().Element("a")
	assert.Equal(t, 1.0, a.Opacity)

	require.NoError(t, s.Dispatch(UpdateElements{IDs: []string{"a", "b"}, Patch: Patch{Opacity: ptr(3.0)}}))
	for _, el := range s.Snapshot().Elements {
		assert.Equal(t, 1.0, el.Opacity)
	}
}

func TestUpdatePlaybackRateKeepsContent(t *testing.T) {
	s := newTestStore(t, timeline.NewVideo("v", "v.mp4", 0, 10, 0))
	require.NoError(t, s.Dispatch(UpdateElement{ID: "v", Patch: Patch{PlaybackRate: ptr(2.0)}}))

	v, _ := s.Snapshot().Element("v")
	assert.Equal(t, 5.0, v.Duration)
	assert.Equal(t, 2.0, v.Media.PlaybackRate)
}

func TestMoveClamps(t *testing.T) {
	s := newTestStore(t, timeline.NewImage("a", "a.png", 4, 2, 2))
	require.NoError(t, s.Dispatch(MoveElements{Moves: []Move{{ID: "a", StartTime: -3, TrackID: -1}}}))

	a, _ := s.Snapshot().Element("a")
	assert.Equal(t, 0.0, a.StartTime)
	assert.Equal(t, 0, a.TrackID)
}

func TestRemoveDropsSelection(t *testing.T) {
	s := newTestStore(t,
		timeline.NewImage("a", "a.png", 0, 2, 0),
		timeline.NewImage("b", "b.png", 2, 2, 0),
	)
	require.NoError(t, s.Dispatch(SetSelection{IDs: []string{"a", "b", "ghost"}}))
	assert.Equal(t, []string{"a", "b"}, s.Snapshot().SelectedIDs())

	require.NoError(t, s.Dispatch(RemoveElements{IDs: []string{"a"}}))
	snap := s.Snapshot()
	assert.Equal(t, []string{"b"}, snap.SelectedIDs())
	_, ok := snap.Element("a")
	assert.False(t, ok)
}

func TestSplitInsertsAfterLeft(t *testing.T) {
	s := newTestStore(t,
		timeline.NewVideo("v", "v.mp4", 0, 10, 0),
		timeline.NewImage("i", "i.png", 0, 2, 1),
	)
	require.NoError(t, s.Dispatch(SplitAt{ID: "v", Time: 4}))

	snap := s.Snapshot()
	require.Len(t, snap.Elements, 3)
	assert.Equal(t, "v", snap.Elements[0].ID)
	assert.Equal(t, "gen-1", snap.Elements[1].ID)
	assert.Equal(t, "i", snap.Elements[2].ID)
	assert.Equal(t, 4.0, snap.Elements[0].Duration)
	assert.Equal(t, 4.0, snap.Elements[1].StartTime)
	assert.Equal(t, 6.0, snap.Elements[1].Duration)
	assert.Equal(t, 4.0, snap.Elements[1].Media.TrimStart)

	assert.Error(t, s.Dispatch(SplitAt{ID: "v", Time: 9}))
}

func TestPasteKeepsOffsetsAndSelects(t *testing.T) {
	a := timeline.NewImage("a", "a.png", 3, 2, 0)
	b := timeline.NewText("b", "hi", 5, 1, 1)
	s := newTestStore(t, a, b)

	require.NoError(t, s.Dispatch(PasteElements{Elements: []timeline.Element{a, b}, At: 10}))
	snap := s.Snapshot()
	require.Len(t, snap.Elements, 4)
	assert.Equal(t, 10.0, snap.Elements[2].StartTime)
	assert.Equal(t, 12.0, snap.Elements[3].StartTime)
	assert.Equal(t, []string{"gen-1", "gen-2"}, snap.SelectedIDs())
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newTestStore(t, timeline.NewVideo("v", "v.mp4", 0, 4, 0))
	snap := s.Snapshot()
	snap.Elements[0].Media.Volume = 0
	snap.Selection["v"] = true

	fresh := s.Snapshot()
	assert.Equal(t, 1.0, fresh.Elements[0].Media.Volume)
	assert.False(t, fresh.IsSelected("v"))
}

func TestSubscribersSeeCommittedState(t *testing.T) {
	s := newTestStore(t)
	var seen []float64
	s.Subscribe(func(st State) { seen = append(seen, st.Playhead) })

	require.NoError(t, s.Dispatch(SetPlayhead{Time: 3}, SetPlayhead{Time: -1}))
	assert.Error(t, s.Dispatch(SetZoom{PixelsPerSecond: 0}))
	assert.Equal(t, []float64{0}, seen)
}

func TestAdvancePlayheadRequiresExpectedPosition(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Dispatch(AdvancePlayhead{From: 0, To: 1.5}))
	assert.Equal(t, 1.5, s.Snapshot().Playhead)

	require.NoError(t, s.Dispatch(SetPlayhead{Time: 4}))
	err := s.Dispatch(AdvancePlayhead{From: 1.5, To: 2})
	assert.ErrorIs(t, err, ErrPlayheadMoved)
	assert.Equal(t, 4.0, s.Snapshot().Playhead)
}

func TestZoomAndAspect(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Dispatch(SetZoom{PixelsPerSecond: 10000}, SetAspect{Aspect: AspectPortrait}))
	snap := s.Snapshot()
	assert.Equal(t, MaxZoom, snap.Zoom)
	assert.Equal(t, AspectPortrait, snap.Aspect)
	assert.Error(t, s.Dispatch(SetAspect{Aspect: "square"}))
}

func TestPlaceLibraryItem(t *testing.T) {
	s := newTestStore(t)
	d := 12.5
	require.NoError(t, s.Dispatch(
		AddLibraryItem{Item: timeline.LibraryItem{ID: "lib1", Kind: timeline.KindVideo, Src: "clip.mp4", Name: "Clip", Duration: &d}},
		PlaceLibraryItem{ItemID: "lib1", Start: 2, TrackID: 1},
	))
	el := s.Snapshot().Elements[0]
	assert.Equal(t, "gen-1", el.ID)
	assert.Equal(t, 12.5, el.Duration)
	assert.Equal(t, "clip.mp4", el.Src())

	assert.Error(t, s.Dispatch(PlaceLibraryItem{ItemID: "nope"}))
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t,
		timeline.NewVideo("v", "v.mp4", 0, 10, 0),
		timeline.NewTransition("t", timeline.TransitionSpin, 9, 2, 1),
		timeline.NewText("x", "title", 1, 3, 2),
	)
	require.NoError(t, s.Dispatch(SetAspect{Aspect: AspectPortrait}, SetSelection{IDs: []string{"v"}}, SetPlaying{Playing: true}))

	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, WriteDocument(s.Snapshot(), path))

	loaded, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot().Elements, loaded.Elements)
	assert.Equal(t, AspectPortrait, loaded.Aspect)
	assert.False(t, loaded.Playing)
	assert.Empty(t, loaded.SelectedIDs())
}
