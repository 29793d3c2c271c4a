package library

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/cutstudio/internal/source"
	"github.com/ivlev/cutstudio/internal/system"
	"github.com/ivlev/cutstudio/internal/timeline"
)

const (
	CategoryVideo       = "video"
	CategoryAudio       = "audio"
	CategoryImage       = "image"
	CategoryDeck        = "deck"
	CategoryQR          = "qr"
	CategoryTransitions = "transitions"
)

// KindForPath infers the element kind of a file from its extension.
func KindForPath(path string) (timeline.Kind, error) {
	switch {
	case system.HasExtension(path, system.VideoExtensions):
		return timeline.KindVideo, nil
	case system.HasExtension(path, system.AudioExtensions):
		return timeline.KindAudio, nil
	case system.HasExtension(path, system.ImageExtensions):
		return timeline.KindImage, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}

// Import adds one media file. Video and audio are probed for their duration; a failed
// probe is logged and leaves the duration unset.
func (c *Catalog) Import(ctx context.Context, path string) (timeline.LibraryItem, error) {
	item, err := c.describe(ctx, path)
	if err != nil {
		return item, err
	}
	return c.Add(item)
}

// ImportAll probes paths in parallel and adds them in the given order. It stops at the
// first file that cannot be added.
func (c *Catalog) ImportAll(ctx context.Context, paths []string, workers int) ([]timeline.LibraryItem, error) {
	items := make([]timeline.LibraryItem, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, p := range paths {
		g.Go(func() error {
			item, err := c.describe(gctx, p)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	added := make([]timeline.LibraryItem, 0, len(items))
	for _, item := range items {
		stored, err := c.Add(item)
		if err != nil {
			return added, err
		}
		added = append(added, stored)
	}
	return added, nil
}

func (c *Catalog) describe(ctx context.Context, path string) (timeline.LibraryItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return timeline.LibraryItem{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return timeline.LibraryItem{}, err
	}
	kind, err := KindForPath(abs)
	if err != nil {
		return timeline.LibraryItem{}, err
	}

	item := timeline.LibraryItem{
		Kind:     kind,
		Src:      abs,
		Name:     strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Category: string(kind),
	}
	if kind.Scrubbable() && c.Probe != nil {
		d, err := c.Probe(ctx, abs)
		if err != nil {
			log.Printf("[!] Failed to probe %s: %v", abs, err)
		} else if d > 0 {
			item.Duration = &d
		}
	}
	return item, nil
}

// ImportDeck adds one image item per page of a PDF or image directory. PDF pages are
// rendered to PNG under the asset directory; image files are referenced in place.
// Pages without a usable size are skipped.
func (c *Catalog) ImportDeck(ctx context.Context, path string, workers int) ([]timeline.LibraryItem, error) {
	deck, err := source.OpenDeck(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer deck.Close()

	n := deck.PageCount()
	if n == 0 {
		return nil, fmt.Errorf("deck %s has no pages", path)
	}
	// pages that cannot report a size are unreadable or blank
	var pages []int
	for i := 0; i < n; i++ {
		w, h, err := deck.PageSize(i)
		switch {
		case err != nil:
			log.Printf("[!] Skipping page %d of %s: %v", i+1, filepath.Base(path), err)
		case w <= 0 || h <= 0:
			log.Printf("[!] Skipping empty page %d of %s", i+1, filepath.Base(path))
		default:
			pages = append(pages, i)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("deck %s has no readable pages", path)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outDir := filepath.Join(c.AssetDir(), base+"_"+uuid.NewString()[:8])

	srcs := make([]string, len(pages))
	paths, inPlace := deck.(interface{ Path(int) string })
	if inPlace {
		for j, i := range pages {
			srcs[j], err = filepath.Abs(paths.Path(i))
			if err != nil {
				return nil, err
			}
		}
	} else {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, err
		}
		fmt.Printf("[*] Rendering %d pages of %s...\n", len(pages), filepath.Base(path))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(workers, 1))
		for j, i := range pages {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				img, err := deck.RenderPage(i, c.DPI)
				if err != nil {
					return fmt.Errorf("page %d: %w", i+1, err)
				}
				out := filepath.Join(outDir, fmt.Sprintf("page_%03d.png", i+1))
				if err := writePNG(out, img); err != nil {
					return err
				}
				srcs[j] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	items := make([]timeline.LibraryItem, 0, len(pages))
	for j, src := range srcs {
		item, err := c.Add(timeline.LibraryItem{
			Kind:     timeline.KindImage,
			Src:      src,
			Name:     fmt.Sprintf("%s p.%d", base, pages[j]+1),
			Category: CategoryDeck,
		})
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GenerateQR renders content as a QR code PNG of size×size pixels and adds it as an image.
func (c *Catalog) GenerateQR(content string, size int) (timeline.LibraryItem, error) {
	if content == "" {
		return timeline.LibraryItem{}, fmt.Errorf("empty QR content")
	}
	if err := os.MkdirAll(c.AssetDir(), 0755); err != nil {
		return timeline.LibraryItem{}, err
	}
	id := uuid.NewString()
	out := filepath.Join(c.AssetDir(), "qr_"+id+".png")
	if err := qrcode.WriteFile(content, qrcode.Medium, size, out); err != nil {
		return timeline.LibraryItem{}, fmt.Errorf("generate QR: %w", err)
	}

	name := content
	if len(name) > 32 {
		name = name[:32] + "..."
	}
	return c.Add(timeline.LibraryItem{
		ID:       id,
		Kind:     timeline.KindImage,
		Src:      out,
		Name:     "QR " + name,
		Category: CategoryQR,
	})
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
