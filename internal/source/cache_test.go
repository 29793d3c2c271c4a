package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestParseSrc(t *testing.T) {
	tests := []struct {
		src     string
		path    string
		page    int
		wantErr bool
	}{
		{"a.png", "a.png", 0, false},
		{"deck.pdf", "deck.pdf", 1, false},
		{"deck.PDF#page=3", "deck.PDF", 3, false},
		{"deck.pdf#page=0", "", 0, true},
		{"a.png#page=2", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			path, page, err := ParseSrc(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.page, page)
		})
	}
	assert.Equal(t, "d.pdf#page=2", PageSrc("d.pdf", 2))
}

func TestLoadImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 6, 4)

	img, err := LoadImage(path, 72)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), img.Bounds())

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"), 72)
	assert.Error(t, err)
}

func TestImageDeckSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "a.png"), 3, 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	deck, err := NewImageDeck(dir)
	require.NoError(t, err)
	require.Equal(t, 2, deck.PageCount())
	assert.Equal(t, filepath.Join(dir, "a.png"), deck.Path(0))

	w, h, err := deck.PageSize(0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, w)
	assert.Equal(t, 5.0, h)
}

func TestPreloadDecodesEachSrcOnce(t *testing.T) {
	var calls atomic.Int32
	cache := NewImageCacheWith(func(src string) (image.Image, error) {
		calls.Add(1)
		if src == "bad" {
			return nil, errors.New("boom")
		}
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})

	failed, err := cache.Preload(context.Background(), []string{"a", "b", "a", "", "bad", "b"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, cache.Len())

	_, ok := cache.Image("bad")
	assert.False(t, ok)

	// cached sources are not decoded again
	_, err = cache.Preload(context.Background(), []string{"a", "b"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPreloadCancelled(t *testing.T) {
	cache := NewImageCacheWith(func(string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Preload(ctx, []string{"a"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
