package export

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/renderer"
	"github.com/ivlev/cutstudio/internal/scheduler"
)

// Still рендерит один кадр в момент t так, как его показывает превью на паузе. Слои,
// которые не удалось нарисовать, пропускаются, ошибка возвращается вместе с картинкой.
func (e *Exporter) Still(ctx context.Context, s project.State, t float64) (*image.RGBA, error) {
	active := scheduler.Active(s.Elements, t)
	if _, err := e.deps.Images.Preload(ctx, imageSources(active), e.opts.Workers); err != nil {
		return nil, err
	}

	e.comp.Reset()
	frame := e.comp.Tick(s, t, scheduler.ModeScrubbing)
	canvas := image.NewRGBA(image.Rect(0, 0, e.opts.Width, e.opts.Height))
	painter := renderer.NewPainter(e.opts.Width, e.opts.Height, e.deps.Images, e.pool)
	return canvas, painter.Paint(canvas, frame)
}

// WriteStill сохраняет кадр в момент t в PNG. Ошибки отрисовки возвращаются после
// записи файла.
func (e *Exporter) WriteStill(ctx context.Context, s project.State, t float64, path string) error {
	img, paintErr := e.Still(ctx, s, t)
	if img == nil {
		return paintErr
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return paintErr
}
