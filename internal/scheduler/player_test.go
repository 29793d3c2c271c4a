package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/media/mediatest"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/renderer"
	"github.com/ivlev/cutstudio/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualPlayer struct {
	*Player
	store  *project.Store
	clock  *media.VirtualClock
	ticks  chan time.Time
	frames chan renderer.Frame
}

func newManualPlayer(t *testing.T, els ...timeline.Element) *manualPlayer {
	t.Helper()
	store := project.NewStore(project.NewState())
	for _, el := range els {
		require.NoError(t, store.Dispatch(project.AddElement{Element: el}))
	}
	m := &manualPlayer{
		store:  store,
		clock:  media.NewVirtualClock(),
		ticks:  make(chan time.Time),
		frames: make(chan renderer.Frame, 16),
	}
	sink := SinkFunc(func(f renderer.Frame) error {
		m.frames <- f
		return nil
	})
	m.Player = NewPlayer(store, newComp(t, mediatest.NewFactory(60)), sink, 30).
		WithClock(m.clock, func(time.Duration) (<-chan time.Time, func()) { return m.ticks, func() {} })
	return m
}

// step advances the clock by d, fires one tick and returns the presented frame.
func (m *manualPlayer) step(t *testing.T, d time.Duration) renderer.Frame {
	t.Helper()
	m.clock.Advance(d)
	m.ticks <- time.Time{}
	select {
	case f := <-m.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame presented")
		return renderer.Frame{}
	}
}

func TestPlayerAdvancesAndStopsAtEnd(t *testing.T) {
	m := newManualPlayer(t, timeline.NewImage("a", "a.png", 0, 2, 0))
	require.NoError(t, m.Play(context.Background()))
	assert.True(t, m.store.Snapshot().Playing)

	f := m.step(t, time.Second)
	assert.Equal(t, 1.0, f.Time)
	assert.Len(t, f.Instructions, 1)
	assert.Equal(t, 1.0, m.store.Snapshot().Playhead)

	f = m.step(t, 2*time.Second)
	assert.Equal(t, 3.0, f.Time)
	assert.Empty(t, f.Instructions)

	// past the 10s project floor: final paused frame at the end
	f = m.step(t, 8*time.Second)
	assert.Equal(t, 10.0, f.Time)
	m.Wait()

	snap := m.store.Snapshot()
	assert.False(t, snap.Playing)
	assert.Equal(t, 10.0, snap.Playhead)
	assert.False(t, m.Playing())
}

func TestPlayerPause(t *testing.T) {
	m := newManualPlayer(t, timeline.NewImage("a", "a.png", 0, 2, 0))
	require.NoError(t, m.Play(context.Background()))
	m.step(t, 500*time.Millisecond)

	m.Pause()
	f := <-m.frames
	assert.Equal(t, 0.5, f.Time)
	assert.False(t, m.store.Snapshot().Playing)
	assert.False(t, m.Playing())
}

func TestPlayerReanchorsOnExternalSeek(t *testing.T) {
	m := newManualPlayer(t, timeline.NewImage("a", "a.png", 0, 8, 0))
	require.NoError(t, m.Play(context.Background()))
	m.step(t, time.Second)

	require.NoError(t, m.store.Dispatch(project.SetPlayhead{Time: 5}))
	f := m.step(t, 500*time.Millisecond)
	assert.Equal(t, 5.0, f.Time)

	f = m.step(t, time.Second)
	assert.Equal(t, 6.0, f.Time)
	m.Pause()
}

// seekingClock runs a callback on the next Now, which lands between the loop's snapshot
// and its playhead write.
type seekingClock struct {
	*media.VirtualClock
	mu    sync.Mutex
	onNow func()
}

func (c *seekingClock) arm(fn func()) {
	c.mu.Lock()
	c.onNow = fn
	c.mu.Unlock()
}

func (c *seekingClock) Now() time.Time {
	c.mu.Lock()
	fn := c.onNow
	c.onNow = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return c.VirtualClock.Now()
}

func TestPlayerKeepsSeekDuringTick(t *testing.T) {
	m := newManualPlayer(t, timeline.NewImage("a", "a.png", 0, 8, 0))
	clock := &seekingClock{VirtualClock: m.clock}
	m.WithClock(clock, func(time.Duration) (<-chan time.Time, func()) { return m.ticks, func() {} })
	require.NoError(t, m.Play(context.Background()))

	clock.arm(func() {
		assert.NoError(t, m.store.Dispatch(project.SetPlayhead{Time: 5}))
	})
	m.clock.Advance(time.Second)
	m.ticks <- time.Time{}

	// the tick that raced the seek presents nothing; the next one starts from 5
	f := m.step(t, 500*time.Millisecond)
	assert.Equal(t, 5.0, f.Time)
	assert.Equal(t, 5.0, m.store.Snapshot().Playhead)

	f = m.step(t, time.Second)
	assert.Equal(t, 6.0, f.Time)
	m.Pause()
}

func TestPlayerRestartsFromZeroAtEnd(t *testing.T) {
	m := newManualPlayer(t)
	require.NoError(t, m.store.Dispatch(project.SetPlayhead{Time: 12}))
	require.NoError(t, m.Play(context.Background()))
	assert.Equal(t, 0.0, m.store.Snapshot().Playhead)

	f := m.step(t, 250*time.Millisecond)
	assert.Equal(t, 0.25, f.Time)
	m.Pause()
}

func TestPlayerStopsWhenStoreIsPaused(t *testing.T) {
	m := newManualPlayer(t)
	require.NoError(t, m.Play(context.Background()))
	require.NoError(t, m.store.Dispatch(project.TogglePlay{}))

	m.clock.Advance(time.Second)
	m.ticks <- time.Time{}
	m.Wait()
	assert.False(t, m.Playing())
}

func TestSeekWhilePausedPresentsScrubFrame(t *testing.T) {
	m := newManualPlayer(t, timeline.NewImage("a", "a.png", 2, 2, 0))
	require.NoError(t, m.Seek(3))
	f := <-m.frames
	assert.Equal(t, 3.0, f.Time)
	assert.Len(t, f.Instructions, 1)
}
