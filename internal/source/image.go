package source

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/ivlev/cutstudio/internal/system"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageDeck treats a directory of images, sorted by name, as a deck.
type ImageDeck struct {
	paths []string
}

func NewImageDeck(path string) (*ImageDeck, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && system.HasExtension(entry.Name(), system.ImageExtensions) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageDeck{paths: paths}, nil
}

func (s *ImageDeck) PageCount() int {
	return len(s.paths)
}

// Path returns the file backing page index.
func (s *ImageDeck) Path(index int) string {
	return s.paths[index]
}

func (s *ImageDeck) PageSize(index int) (float64, float64, error) {
	f, err := os.Open(s.paths[index])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

func (s *ImageDeck) RenderPage(index int, _ int) (image.Image, error) {
	return decodeFile(s.paths[index])
}

func (s *ImageDeck) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
