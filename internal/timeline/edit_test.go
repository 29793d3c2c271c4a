package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_AtPlayhead(t *testing.T) {
	el := NewVideo("v1", "clip.mp4", 0, 10, 0)

	left, right, err := Split(el, 4, "v2")
	require.NoError(t, err)

	assert.Equal(t, "v1", left.ID)
	assert.Equal(t, 0.0, left.StartTime)
	assert.Equal(t, 4.0, left.Duration)
	assert.Equal(t, 0.0, left.Media.TrimStart)

	assert.Equal(t, "v2", right.ID)
	assert.Equal(t, 4.0, right.StartTime)
	assert.Equal(t, 6.0, right.Duration)
	assert.Equal(t, 4.0, right.Media.TrimStart)
}

func TestSplit_RespectsPlaybackRate(t *testing.T) {
	el := NewVideo("v1", "clip.mp4", 1, 10, 0)
	el.Media.TrimStart = 2
	el.Media.PlaybackRate = 2

	_, right, err := Split(el, 4, "v2")
	require.NoError(t, err)
	assert.Equal(t, 2+3*2.0, right.Media.TrimStart)
}

func TestSplit_DistributesFades(t *testing.T) {
	el := NewAudio("a", "a.mp3", 0, 10, 1)
	el.FadeIn, el.FadeOut = 1, 2

	left, right, err := Split(el, 5, "b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, left.FadeIn)
	assert.Equal(t, 0.0, left.FadeOut)
	assert.Equal(t, 0.0, right.FadeIn)
	assert.Equal(t, 2.0, right.FadeOut)
}

func TestSplit_DoesNotShareMedia(t *testing.T) {
	el := NewVideo("v1", "clip.mp4", 0, 10, 0)
	left, right, err := Split(el, 5, "v2")
	require.NoError(t, err)

	right.Media.Volume = 0.2
	assert.Equal(t, 1.0, left.Media.Volume)
	assert.Equal(t, 1.0, el.Media.Volume)
}

func TestSplit_OutsideRange(t *testing.T) {
	el := NewVideo("v1", "clip.mp4", 2, 3, 0)
	for _, at := range []float64{1, 2, 5, 9} {
		_, _, err := Split(el, at, "v2")
		assert.Error(t, err, "at=%v", at)
	}
	_, _, err := Split(el, 3, "v1")
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	el := NewText("t1", "title", 3, 2, 4)
	c := Clone(el, "t2", -1)

	assert.Equal(t, "t2", c.ID)
	assert.Equal(t, 0.0, c.StartTime)
	c.Text.Text = "changed"
	assert.Equal(t, "title", el.Text.Text)
}

func TestSetPlaybackRate(t *testing.T) {
	el := NewVideo("v", "v.mp4", 0, 10, 0)
	require.NoError(t, SetPlaybackRate(&el, 2))
	assert.Equal(t, 5.0, el.Duration)
	assert.Equal(t, 2.0, el.Media.PlaybackRate)

	require.NoError(t, SetPlaybackRate(&el, 0.5))
	assert.Equal(t, 20.0, el.Duration)

	img := NewImage("i", "i.png", 0, 1, 0)
	require.Error(t, SetPlaybackRate(&img, 2))
	require.Error(t, SetPlaybackRate(&el, 0))
}

func TestParseTransition(t *testing.T) {
	for _, tr := range Transitions() {
		got, ok := ParseTransition(tr.DisplayName())
		require.True(t, ok, tr)
		assert.Equal(t, tr, got)

		got, ok = ParseTransition(string(tr))
		require.True(t, ok, tr)
		assert.Equal(t, tr, got)
	}

	got, ok := ParseTransition("swipe LEFT")
	assert.True(t, ok)
	assert.Equal(t, TransitionSwipeLeft, got)

	_, ok = ParseTransition("My holiday photo")
	assert.False(t, ok)
}

func TestFromLibrary(t *testing.T) {
	dur := 12.5
	video := FromLibrary(LibraryItem{ID: "lib1", Kind: KindVideo, Src: "a.mp4", Name: "Intro", Duration: &dur}, "e1", 3, 1)
	require.NoError(t, Validate(video))
	assert.Equal(t, 12.5, video.Duration)
	assert.Equal(t, 12.5, video.Media.SourceDuration)
	assert.Equal(t, "Intro", video.Name)

	still := FromLibrary(LibraryItem{ID: "lib2", Kind: KindImage, Src: "a.png", Name: "Logo"}, "e2", -4, -1)
	assert.Equal(t, DefaultStillDuration, still.Duration)
	assert.Equal(t, 0.0, still.StartTime)
	assert.Equal(t, 0, still.TrackID)
	assert.Equal(t, TransitionNone, still.Transition())

	spin := FromLibrary(LibraryItem{ID: "lib3", Kind: KindImage, Src: "spin.png", Name: "Spin"}, "e3", 0, 2)
	assert.Equal(t, TransitionSpin, spin.Transition())
	assert.Equal(t, "spin.png", spin.Src())
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.False(t, seen[id])
		seen[id] = true
	}
}
