package shell

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/media/mediatest"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	sh := New(project.NewStore(project.NewState()), filepath.Join(t.TempDir(), "p.yaml"))
	sh.Out = &out
	return sh, &out
}

func only(t *testing.T, sh *Shell) timeline.Element {
	t.Helper()
	els := sh.Store.Snapshot().Elements
	require.Len(t, els, 1)
	return els[0]
}

func TestAddCommands(t *testing.T) {
	sh, out := newShell(t)
	assert.True(t, sh.Exec("add video clip.mp4 1 4 2"))
	el := only(t, sh)
	assert.Equal(t, timeline.KindVideo, el.Kind)
	assert.Equal(t, "clip.mp4", el.Src())
	assert.Equal(t, 1.0, el.StartTime)
	assert.Equal(t, 4.0, el.Duration)
	assert.Equal(t, 2, el.TrackID)
	assert.Contains(t, out.String(), "[+] video")

	sh.Exec("add text 0 3 Hello world")
	sh.Exec("add transition swipe-left 2 1")
	els := sh.Store.Snapshot().Elements
	require.Len(t, els, 3)
	assert.Equal(t, "Hello world", els[1].Text.Text)
	assert.Equal(t, timeline.TransitionSwipeLeft, els[2].Transition())
}

func TestBadInputIsReported(t *testing.T) {
	sh, out := newShell(t)
	for _, line := range []string{
		"add",
		"add video clip.mp4 x 4",
		"add blob a 0 1",
		"add transition nope 0 1",
		"move missing 1",
		"split",
		"bogus",
	} {
		out.Reset()
		assert.True(t, sh.Exec(line), line)
		assert.Contains(t, out.String(), "[!]", line)
	}
	assert.Empty(t, sh.Store.Snapshot().Elements)
}

func TestMoveSplitRemove(t *testing.T) {
	sh, _ := newShell(t)
	sh.Exec("add image a.png 0 4 1")
	id := only(t, sh).ID

	sh.Exec("move " + id + " 2")
	el := only(t, sh)
	assert.Equal(t, 2.0, el.StartTime)
	assert.Equal(t, 1, el.TrackID, "track kept when omitted")

	sh.Exec("move " + id + " -3 -1")
	el = only(t, sh)
	assert.Equal(t, 0.0, el.StartTime)
	assert.Equal(t, 0, el.TrackID)

	sh.Exec("split " + id + " 1")
	els := sh.Store.Snapshot().Elements
	require.Len(t, els, 2)
	assert.Equal(t, 1.0, els[0].Duration)
	assert.Equal(t, 3.0, els[1].Duration)

	sh.Exec("sel " + els[1].ID)
	assert.Equal(t, []string{els[1].ID}, sh.Store.Snapshot().SelectedIDs())
	sh.Exec("rm " + els[1].ID)
	assert.Len(t, sh.Store.Snapshot().Elements, 1)
	assert.Empty(t, sh.Store.Snapshot().SelectedIDs())
}

func elementAt(t *testing.T, sh *Shell, id string) timeline.Element {
	t.Helper()
	el, ok := sh.Store.Snapshot().Element(id)
	require.True(t, ok, id)
	return el
}

// Default zoom is 50 px/s and the snap distance 15 px, so 0.3 s.
func TestDragSnapsToNeighbour(t *testing.T) {
	sh, out := newShell(t)
	require.NoError(t, sh.Store.Dispatch(
		project.AddElement{Element: timeline.NewImage("a", "a.png", 0, 2, 0)},
		project.AddElement{Element: timeline.NewImage("b", "b.png", 5, 2, 0)},
	))

	// 5 s - 140 px lands at 2.2 s, within reach of a's end
	sh.Exec("drag b -140 0")
	assert.Empty(t, out.String())
	assert.Equal(t, 2.0, elementAt(t, sh, "b").StartTime)
	assert.Equal(t, []string{"b"}, sh.Store.Snapshot().SelectedIDs())

	sh.Exec("drag b 50 56")
	b := elementAt(t, sh, "b")
	assert.Equal(t, 3.0, b.StartTime)
	assert.Equal(t, 1, b.TrackID)
	assert.Equal(t, 0.0, elementAt(t, sh, "a").StartTime)

	sh.Exec("drag b 1 1")
	assert.Equal(t, 3.0, elementAt(t, sh, "b").StartTime, "a press without movement keeps the element")

	out.Reset()
	sh.Exec("drag missing 10 0")
	assert.Contains(t, out.String(), "not found")
}

func TestResizeMarqueeClick(t *testing.T) {
	sh, out := newShell(t)
	require.NoError(t, sh.Store.Dispatch(
		project.AddElement{Element: timeline.NewImage("a", "a.png", 0, 2, 0)},
		project.AddElement{Element: timeline.NewImage("b", "b.png", 5, 2, 1)},
	))

	sh.Exec("resize a end 100")
	assert.Equal(t, 4.0, elementAt(t, sh, "a").Duration)
	sh.Exec("resize a start 50")
	a := elementAt(t, sh, "a")
	assert.Equal(t, 1.0, a.StartTime)
	assert.Equal(t, 3.0, a.Duration)

	out.Reset()
	sh.Exec("resize a middle 10")
	assert.Contains(t, out.String(), "usage")

	sh.Exec("marquee 0 0 500 200")
	assert.ElementsMatch(t, []string{"a", "b"}, sh.Store.Snapshot().SelectedIDs())
	sh.Exec("marquee 0 0 60 20")
	assert.Equal(t, []string{"a"}, sh.Store.Snapshot().SelectedIDs())

	sh.Exec("click 300 90")
	assert.Equal(t, []string{"b"}, sh.Store.Snapshot().SelectedIDs())

	sh.Exec("click 600")
	s := sh.Store.Snapshot()
	assert.Empty(t, s.SelectedIDs())
	assert.Equal(t, 12.0, s.Playhead)
}

func TestEditsPrunePreviewHandles(t *testing.T) {
	sh, _ := newShell(t)
	sh.Media = media.NewPool(mediatest.NewFactory(10).Open)
	require.NoError(t, sh.Store.Dispatch(project.AddElement{Element: timeline.NewVideo("v", "v.mp4", 0, 4, 0)}))

	h, err := sh.Media.Get(elementAt(t, sh, "v"))
	require.NoError(t, err)

	sh.Exec("split v 2")
	_, ok := sh.Media.Lookup("v")
	assert.True(t, ok, "the left half keeps its id and handle")

	sh.Exec("rm v")
	_, ok = sh.Media.Lookup("v")
	assert.False(t, ok)
	assert.True(t, h.(*mediatest.Handle).Closed())
}

func TestTransportWithoutPlayer(t *testing.T) {
	sh, _ := newShell(t)
	sh.Exec("seek 3.5")
	sh.Exec("play")
	s := sh.Store.Snapshot()
	assert.Equal(t, 3.5, s.Playhead)
	assert.True(t, s.Playing)
	sh.Exec("pause")
	assert.False(t, sh.Store.Snapshot().Playing)

	sh.Exec("zoom 120")
	sh.Exec("aspect portrait")
	s = sh.Store.Snapshot()
	assert.Equal(t, 120.0, s.Zoom)
	assert.Equal(t, project.AspectPortrait, s.Aspect)
}

func TestPlaceLibraryItemFromState(t *testing.T) {
	sh, out := newShell(t)
	d := 6.0
	require.NoError(t, sh.Store.Dispatch(project.AddLibraryItem{Item: timeline.LibraryItem{
		ID: "song", Kind: timeline.KindAudio, Src: "song.mp3", Name: "Song", Duration: &d,
	}}))
	sh.Exec("lib song 2 3")
	el := only(t, sh)
	assert.Equal(t, timeline.KindAudio, el.Kind)
	assert.Equal(t, 6.0, el.Duration)
	assert.Equal(t, 3, el.TrackID)

	out.Reset()
	sh.Exec("lib nothing 0")
	assert.Contains(t, out.String(), "not found")
}

func TestSaveAndList(t *testing.T) {
	sh, out := newShell(t)
	sh.Exec("add image a.png 0 4")
	sh.Exec("ls")
	assert.Contains(t, out.String(), "a.png")

	sh.Exec("save")
	s, err := project.ReadDocument(sh.Path)
	require.NoError(t, err)
	assert.Len(t, s.Elements, 1)

	out.Reset()
	sh.Exec("frame 1 out.png")
	assert.Contains(t, out.String(), "unavailable")
	out.Reset()
	sh.Exec("export")
	assert.Contains(t, out.String(), "unavailable")
}

func TestExit(t *testing.T) {
	sh, _ := newShell(t)
	assert.False(t, sh.Exec("exit"))
	assert.False(t, sh.Exec("/q"))
	assert.True(t, sh.Exec("   "))
}
