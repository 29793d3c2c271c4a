package system

import (
	"image"
	"sync"
)

// ImagePool переиспользует холсты одного размера между кадрами, иначе экспорт и
// декодирование выделяют полный RGBA на каждый кадр.
type ImagePool struct {
	mu    sync.Mutex
	pools map[image.Point]*sync.Pool
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

var defaultPool = NewImagePool()

// GetImage берет холст w×h из общего пула. Содержимое не определено.
func GetImage(w, h int) *image.RGBA { return defaultPool.Get(w, h) }

// PutImage возвращает холст в общий пул.
func PutImage(img *image.RGBA) { defaultPool.Put(img) }

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.pools[size]
	if !ok {
		pl = &sync.Pool{New: func() any {
			return image.NewRGBA(image.Rectangle{Max: size})
		}}
		p.pools[size] = pl
	}
	return pl
}

func (p *ImagePool) Get(w, h int) *image.RGBA {
	return p.pool(image.Pt(w, h)).Get().(*image.RGBA)
}

// Put игнорирует изображения с началом не в (0,0): подизображения делят буфер родителя.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}
