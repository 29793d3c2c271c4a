package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsActiveAt_HalfOpen(t *testing.T) {
	el := NewImage("a", "a.png", 2, 3, 0)

	tests := []struct {
		t      float64
		active bool
	}{
		{1.999, false},
		{2.0, true},
		{3.5, true},
		{4.999, true},
		{5.0, false},
		{7.0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.active, IsActiveAt(el, tt.t), "t=%.3f", tt.t)
	}
}

func TestAdjacentClipsNeverShareBoundary(t *testing.T) {
	a := NewImage("a", "a.png", 0, 2, 0)
	b := NewImage("b", "b.png", 2, 2, 0)

	assert.False(t, IsActiveAt(a, 2))
	assert.True(t, IsActiveAt(b, 2))
}

func TestContentExtent(t *testing.T) {
	elements := []Element{
		NewImage("a", "a.png", 0, 3, 0),
		NewImage("b", "b.png", 2, 5, 1),
		NewText("c", "hi", 4, 1, 2),
	}
	assert.Equal(t, 7.0, ContentExtent(elements))
	assert.Equal(t, 0.0, ContentExtent(nil))
}

func TestClamps(t *testing.T) {
	assert.Equal(t, 0.0, ClampStart(-3))
	assert.Equal(t, 1.5, ClampStart(1.5))
	assert.Equal(t, 0, ClampTrack(-1))
	assert.Equal(t, MinDuration, ClampDuration(0.1))
	assert.Equal(t, 2.0, ClampDuration(2))
	assert.Equal(t, 1.0, Clamp01(4))
	assert.Equal(t, 0.0, Clamp01(-4))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(NewVideo("v", "v.mp4", 0, 10, 0)))
	require.NoError(t, Validate(NewTransition("t", TransitionSpin, 0, 1, 3)))
	require.NoError(t, Validate(NewText("x", "hello", 1, 1, 0)))

	bad := NewImage("i", "i.png", 0, 0, 0)
	require.ErrorIs(t, Validate(bad), ErrInvalidPlacement)

	bad = NewImage("i", "i.png", -1, 1, 0)
	require.ErrorIs(t, Validate(bad), ErrInvalidPlacement)

	bad = NewImage("i", "i.png", 0, 1, -2)
	require.ErrorIs(t, Validate(bad), ErrInvalidPlacement)

	mixed := NewVideo("v", "v.mp4", 0, 1, 0)
	mixed.Text = &TextPayload{Text: "nope"}
	require.Error(t, Validate(mixed))

	wrongKind := NewVideo("v", "v.mp4", 0, 1, 0)
	wrongKind.Kind = KindText
	require.Error(t, Validate(wrongKind))

	zeroRate := NewAudio("a", "a.mp3", 0, 1, 0)
	zeroRate.Media.PlaybackRate = 0
	require.Error(t, Validate(zeroRate))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("audio")
	require.NoError(t, err)
	assert.Equal(t, KindAudio, k)
	assert.True(t, k.Scrubbable())
	assert.False(t, KindImage.Scrubbable())

	_, err = ParseKind("hologram")
	require.Error(t, err)
}
