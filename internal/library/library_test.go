package library

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/cutstudio/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	c.Probe = func(ctx context.Context, path string) (float64, error) {
		if filepath.Base(path) == "broken.mp4" {
			return 0, errors.New("moov atom not found")
		}
		return 12.5, nil
	}
	return c
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	return p
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestInitMigrates(t *testing.T) {
	dir := t.TempDir()
	c, err := Init(dir)
	require.NoError(t, err)
	v, err := userVersion(c.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
	require.NoError(t, c.Close())

	// reopening an up-to-date database is a no-op
	c, err = Init(dir)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestAddGetDelete(t *testing.T) {
	c := newCatalog(t)
	d := 4.0
	item, err := c.Add(timeline.LibraryItem{Kind: timeline.KindVideo, Src: "/media/clip.mp4", Category: "video", Duration: &d})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "clip", item.Name)

	got, err := c.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	require.NoError(t, c.SetDuration(item.ID, 9))
	got, err = c.Get(item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 9.0, *got.Duration)

	require.NoError(t, c.Delete(item.ID))
	_, err = c.Get(item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete(item.ID), ErrNotFound)
	assert.ErrorIs(t, c.SetDuration(item.ID, 1), ErrNotFound)
}

func TestAddValidation(t *testing.T) {
	c := newCatalog(t)
	_, err := c.Add(timeline.LibraryItem{Kind: timeline.KindVideo})
	assert.Error(t, err)
	_, err = c.Add(timeline.LibraryItem{Src: "a.png"})
	assert.Error(t, err)

	_, err = c.Add(timeline.LibraryItem{Kind: timeline.KindImage, Src: "a.png"})
	require.NoError(t, err)
	_, err = c.Add(timeline.LibraryItem{Kind: timeline.KindImage, Src: "a.png"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = c.Add(timeline.LibraryItem{Kind: timeline.KindText, Name: "Title"})
	assert.NoError(t, err)
}

func TestListByCategory(t *testing.T) {
	c := newCatalog(t)
	for _, it := range []timeline.LibraryItem{
		{Kind: timeline.KindImage, Src: "1.png", Category: "image"},
		{Kind: timeline.KindAudio, Src: "2.mp3", Category: "audio"},
		{Kind: timeline.KindImage, Src: "3.png", Category: "image"},
	} {
		_, err := c.Add(it)
		require.NoError(t, err)
	}

	all, err := c.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	images, err := c.List("image")
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "1.png", images[0].Src)
	assert.Equal(t, "3.png", images[1].Src)
}

func TestSeedTransitions(t *testing.T) {
	c := newCatalog(t)
	require.NoError(t, c.SeedTransitions())
	require.NoError(t, c.SeedTransitions())

	items, err := c.List(CategoryTransitions)
	require.NoError(t, err)
	require.Len(t, items, len(timeline.Transitions()))

	el := timeline.FromLibrary(items[0], "e1", 2, 0)
	assert.Equal(t, timeline.TransitionSpin, el.Transition())
	assert.Empty(t, el.Src())
}

func TestImport(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()

	video, err := c.Import(context.Background(), touch(t, dir, "intro.mp4"))
	require.NoError(t, err)
	assert.Equal(t, timeline.KindVideo, video.Kind)
	assert.Equal(t, CategoryVideo, video.Category)
	require.NotNil(t, video.Duration)
	assert.Equal(t, 12.5, *video.Duration)

	img, err := c.Import(context.Background(), touch(t, dir, "logo.PNG"))
	require.NoError(t, err)
	assert.Equal(t, timeline.KindImage, img.Kind)
	assert.Nil(t, img.Duration)

	broken, err := c.Import(context.Background(), touch(t, dir, "broken.mp4"))
	require.NoError(t, err)
	assert.Nil(t, broken.Duration)

	_, err = c.Import(context.Background(), touch(t, dir, "notes.txt"))
	assert.Error(t, err)
	_, err = c.Import(context.Background(), filepath.Join(dir, "missing.mp4"))
	assert.Error(t, err)
}

func TestImportAllKeepsOrder(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()
	paths := []string{touch(t, dir, "a.mp3"), touch(t, dir, "b.mp4"), touch(t, dir, "c.jpg")}

	items, err := c.ImportAll(context.Background(), paths, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []timeline.Kind{timeline.KindAudio, timeline.KindVideo, timeline.KindImage},
		[]timeline.Kind{items[0].Kind, items[1].Kind, items[2].Kind})

	_, err = c.ImportAll(context.Background(), []string{touch(t, dir, "x.doc")}, 1)
	assert.Error(t, err)
}

func TestImportImageDeck(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "02.png"))
	writeTestPNG(t, filepath.Join(dir, "01.png"))

	items, err := c.ImportDeck(context.Background(), dir, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join(dir, "01.png"), items[0].Src)
	assert.Equal(t, CategoryDeck, items[0].Category)
	assert.Contains(t, items[1].Name, "p.2")

	_, err = c.ImportDeck(context.Background(), t.TempDir(), 1)
	assert.Error(t, err)
}

func TestImportDeckSkipsUnreadablePages(t *testing.T) {
	c := newCatalog(t)
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "01.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02.png"), []byte("not a png"), 0644))
	writeTestPNG(t, filepath.Join(dir, "03.png"))

	items, err := c.ImportDeck(context.Background(), dir, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join(dir, "03.png"), items[1].Src)
	assert.Contains(t, items[1].Name, "p.3")

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "01.png"), nil, 0644))
	_, err = c.ImportDeck(context.Background(), broken, 1)
	assert.ErrorContains(t, err, "no readable pages")
}

func TestGenerateQR(t *testing.T) {
	c := newCatalog(t)
	item, err := c.GenerateQR("https://example.com/talk", 128)
	require.NoError(t, err)
	assert.Equal(t, CategoryQR, item.Category)
	assert.Equal(t, timeline.KindImage, item.Kind)

	f, err := os.Open(item.Src)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Width)

	_, err = c.GenerateQR("", 128)
	assert.Error(t, err)
}
