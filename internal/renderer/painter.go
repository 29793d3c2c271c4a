package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/cutstudio/internal/timeline"
)

// ImageProvider returns decoded still images by source reference.
type ImageProvider interface {
	Image(src string) (image.Image, bool)
}

// VideoProvider returns the current decoded frame of a video element.
type VideoProvider interface {
	VideoFrame(el timeline.Element) (image.Image, error)
}

// Painter draws frames onto an off-screen RGBA canvas.
type Painter struct {
	Width, Height int
	Background    color.RGBA
	Images        ImageProvider
	Video         VideoProvider

	textMu    sync.Mutex
	textCache map[string]*image.RGBA
}

// NewPainter creates a painter for a canvas of the given size with a black background.
func NewPainter(width, height int, images ImageProvider, video VideoProvider) *Painter {
	return &Painter{
		Width:      width,
		Height:     height,
		Background: color.RGBA{A: 0xff},
		Images:     images,
		Video:      video,
		textCache:  make(map[string]*image.RGBA),
	}
}

// Paint clears dst and draws every visual instruction in frame order. A layer that
// cannot be drawn is skipped; the remaining layers are still painted and the collected
// errors are returned together.
func (p *Painter) Paint(dst *image.RGBA, f Frame) error {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)

	var errs []error
	for _, in := range f.Instructions {
		if !in.Visual() || in.Opacity <= 0 {
			continue
		}
		if err := p.paintLayer(dst, in); err != nil {
			errs = append(errs, fmt.Errorf("element %s: %w", in.Element.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Painter) paintLayer(dst *image.RGBA, in Instruction) error {
	el := in.Element
	switch el.Kind {
	case timeline.KindText:
		if el.Text == nil {
			return nil
		}
		src := p.textImage(el.Text)
		k := el.Text.FontSize / float64(basicfont.Face7x13.Height)
		p.transformDraw(dst, src, src.Bounds(), k, in)
		return nil

	case timeline.KindVideo:
		if p.Video == nil {
			return errors.New("no video provider")
		}
		frame, err := p.Video.VideoFrame(el)
		if err != nil {
			return err
		}
		p.transformDraw(dst, frame, frame.Bounds(), p.fit(frame.Bounds()), in)
		return nil

	case timeline.KindImage:
		if el.Src() == "" {
			// Transitions without artwork paint a full-canvas panel.
			panel := image.NewUniform(panelColor(el.Transition()))
			bounds := image.Rect(0, 0, p.Width, p.Height)
			p.transformDraw(dst, panel, bounds, 1, in)
			return nil
		}
		if p.Images == nil {
			return errors.New("no image provider")
		}
		img, ok := p.Images.Image(el.Src())
		if !ok {
			return fmt.Errorf("image %q not loaded", el.Src())
		}
		p.transformDraw(dst, img, img.Bounds(), p.fit(img.Bounds()), in)
		return nil
	}
	return nil
}

// fit scales a source rectangle to fit inside the canvas keeping its aspect ratio.
func (p *Painter) fit(r image.Rectangle) float64 {
	if r.Dx() == 0 || r.Dy() == 0 {
		return 1
	}
	return math.Min(float64(p.Width)/float64(r.Dx()), float64(p.Height)/float64(r.Dy()))
}

// transformDraw maps src so that its centre lands on the canvas centre offset by
// (X, Y), scaled by base×Scale and rotated clockwise by Rotation degrees.
func (p *Painter) transformDraw(dst *image.RGBA, src image.Image, sr image.Rectangle, base float64, in Instruction) {
	tr := in.Transform
	k := base * tr.Scale
	if k <= 0 {
		return
	}
	theta := tr.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta)*k, math.Sin(theta)*k

	cx := float64(p.Width)/2 + tr.X
	cy := float64(p.Height)/2 + tr.Y
	hw := float64(sr.Min.X) + float64(sr.Dx())/2
	hh := float64(sr.Min.Y) + float64(sr.Dy())/2

	m := f64.Aff3{
		cos, -sin, cx - cos*hw + sin*hh,
		sin, cos, cy - sin*hw - cos*hh,
	}

	var opts *draw.Options
	if in.Opacity < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha16{A: uint16(in.Opacity * 0xffff)})}
	}

	interp := draw.Interpolator(draw.BiLinear)
	if _, uniform := src.(*image.Uniform); uniform {
		interp = draw.NearestNeighbor
	}
	interp.Transform(dst, m, src, sr, draw.Over, opts)
}

func (p *Painter) textImage(tx *timeline.TextPayload) *image.RGBA {
	key := tx.Color + "\x00" + tx.Text

	p.textMu.Lock()
	defer p.textMu.Unlock()
	if img, ok := p.textCache[key]; ok {
		return img
	}

	face := basicfont.Face7x13
	lines := strings.Split(tx.Text, "\n")
	width := 1
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > width {
			width = w
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, width, face.Height*len(lines)))

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ParseColor(tx.Color)),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(0, face.Ascent+i*face.Height)
		d.DrawString(line)
	}
	p.textCache[key] = img
	return img
}

func panelColor(tr timeline.Transition) color.RGBA {
	if tr == timeline.TransitionFadeWhite {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return color.RGBA{A: 0xff}
}

// ParseColor reads "#rrggbb" or "#rgb"; anything else is white.
func ParseColor(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
