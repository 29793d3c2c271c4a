package source

import (
	"context"
	"image"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Loader decodes one image src.
type Loader func(src string) (image.Image, error)

// ImageCache holds decoded images by src. Painting only reads the cache; decoding
// happens in Preload or Load.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	load   Loader
}

// NewImageCache creates a cache decoding through LoadImage at dpi.
func NewImageCache(dpi int) *ImageCache {
	return NewImageCacheWith(func(src string) (image.Image, error) { return LoadImage(src, dpi) })
}

func NewImageCacheWith(load Loader) *ImageCache {
	return &ImageCache{images: make(map[string]image.Image), load: load}
}

// Image returns a decoded image if it is cached.
func (c *ImageCache) Image(src string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[src]
	return img, ok
}

// Load decodes src if needed and caches it.
func (c *ImageCache) Load(src string) (image.Image, error) {
	if img, ok := c.Image(src); ok {
		return img, nil
	}
	img, err := c.load(src)
	if err != nil {
		return nil, err
	}
	c.Put(src, img)
	return img, nil
}

func (c *ImageCache) Put(src string, img image.Image) {
	c.mu.Lock()
	c.images[src] = img
	c.mu.Unlock()
}

// Preload decodes every distinct src in parallel with at most workers goroutines.
// Individual failures are logged and returned as a count; the sources stay uncached and
// paint as errors. Only context cancellation is returned as an error.
func (c *ImageCache) Preload(ctx context.Context, srcs []string, workers int) (failed int, err error) {
	if workers <= 0 {
		workers = 1
	}
	seen := make(map[string]bool, len(srcs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, src := range srcs {
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := c.Load(src); err != nil {
				log.Printf("[!] Failed to preload %s: %v", src, err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	err = g.Wait()
	return failed, err
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}
