package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"os/exec"
	"sync"

	"github.com/ivlev/cutstudio/internal/system"
)

// Clip is an ffmpeg-backed Handle. Position is derived from the clock while playing;
// frames are decoded on demand from a rawvideo pipe that is restarted whenever the
// requested time jumps away from the decoder.
type Clip struct {
	mu       sync.Mutex
	src      string
	clock    Clock
	duration float64

	pos    float64 // source time at anchor
	anchor float64 // clock seconds when pos was taken
	paused bool
	rate   float64
	muted  bool

	frameW, frameH int
	fps            float64
	dec            *decoder
	last           *image.RGBA
}

// ClipOptions configures decoding. Zero frame size disables Frame (audio sources).
type ClipOptions struct {
	Clock    Clock
	Duration float64
	FrameW   int
	FrameH   int
	FPS      float64
}

// NewClip creates a paused clip at time 0 without touching ffmpeg.
func NewClip(src string, opts ClipOptions) *Clip {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	return &Clip{
		src:      src,
		clock:    opts.Clock,
		duration: opts.Duration,
		paused:   true,
		rate:     1,
		frameW:   opts.FrameW,
		frameH:   opts.FrameH,
		fps:      opts.FPS,
	}
}

// OpenClip probes src for its duration and picture size. Video is decoded at a size
// fitting inside maxW×maxH.
func OpenClip(ctx context.Context, src string, clock Clock, maxW, maxH int, fps float64) (*Clip, error) {
	duration, err := system.ProbeDuration(ctx, src)
	if err != nil {
		return nil, err
	}
	opts := ClipOptions{Clock: clock, Duration: duration, FPS: fps}
	if w, h, err := system.ProbeVideoSize(ctx, src); err == nil {
		opts.FrameW, opts.FrameH = system.FitEven(w, h, maxW, maxH)
	}
	return NewClip(src, opts), nil
}

func (c *Clip) Src() string { return c.src }

func (c *Clip) Duration() float64 { return c.duration }

func (c *Clip) now() float64 {
	return float64(c.clock.Now().UnixNano()) / 1e9
}

func (c *Clip) currentLocked() float64 {
	t := c.pos
	if !c.paused {
		t += (c.now() - c.anchor) * c.rate
	}
	if c.duration > 0 {
		t = math.Min(t, c.duration)
	}
	return math.Max(0, t)
}

func (c *Clip) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Clip) Seek(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("seek %s: bad time %v", c.src, t)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = math.Max(0, t)
	if c.duration > 0 {
		c.pos = math.Min(c.pos, c.duration)
	}
	c.anchor = c.now()
	return nil
}

func (c *Clip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.anchor = c.now()
		c.paused = false
	}
	return nil
}

func (c *Clip) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.pos = c.currentLocked()
		c.paused = true
	}
}

func (c *Clip) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Clip) SetPlaybackRate(rate float64) {
	if !(rate > 0) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = c.currentLocked()
	c.anchor = c.now()
	c.rate = rate
}

func (c *Clip) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

func (c *Clip) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Frame returns the latest decoded frame at or before the current time. Past the end of
// the source the last frame is held.
func (c *Clip) Frame() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frameW == 0 || c.frameH == 0 {
		return nil, fmt.Errorf("%s: %w", c.src, ErrNoFrame)
	}
	t := c.currentLocked()
	step := 1 / c.fps

	if c.dec == nil || t < c.dec.lastTime()-step || t > c.dec.nextTime()+1.0 {
		if err := c.restartLocked(t); err != nil {
			return nil, err
		}
	}
	for !c.dec.eof && (c.dec.next == 0 || c.dec.nextTime() <= t+step/2) {
		if err := c.dec.read(c.lastFrame()); err != nil {
			if err != io.EOF {
				log.Printf("[!] Decoder for %s failed: %v", c.src, err)
			}
			c.dec.eof = true
		}
	}
	if c.dec.next == 0 {
		return nil, fmt.Errorf("%s at %.3fs: %w", c.src, t, ErrNoFrame)
	}
	return c.last, nil
}

func (c *Clip) lastFrame() *image.RGBA {
	if c.last == nil {
		c.last = image.NewRGBA(image.Rect(0, 0, c.frameW, c.frameH))
	}
	return c.last
}

func (c *Clip) restartLocked(t float64) error {
	if c.dec != nil {
		c.dec.close()
	}
	dec, err := startDecoder(c.src, t, c.frameW, c.frameH, c.fps)
	if err != nil {
		c.dec = nil
		return err
	}
	c.dec = dec
	return nil
}

func (c *Clip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dec != nil {
		c.dec.close()
		c.dec = nil
	}
	return nil
}

// decoder is one running `ffmpeg -ss start -i src -f rawvideo` process.
type decoder struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	cancel context.CancelFunc
	start  float64
	fps    float64
	next   int
	eof    bool
	buf    []byte
}

func startDecoder(src string, start float64, w, h int, fps float64) (*decoder, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-ss", fmt.Sprintf("%f", start),
		"-i", src,
		"-an",
		"-vf", fmt.Sprintf("fps=%g,scale=%d:%d", fps, w, h),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return &decoder{cmd: cmd, out: out, cancel: cancel, start: start, fps: fps}, nil
}

func (d *decoder) nextTime() float64 { return d.start + float64(d.next)/d.fps }

func (d *decoder) lastTime() float64 { return d.start + float64(d.next-1)/d.fps }

// read fills dst with the next frame. A short read keeps the previous picture.
func (d *decoder) read(dst *image.RGBA) error {
	if len(d.buf) != len(dst.Pix) {
		d.buf = make([]byte, len(dst.Pix))
	}
	if _, err := io.ReadFull(d.out, d.buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}
	copy(dst.Pix, d.buf)
	d.next++
	return nil
}

func (d *decoder) close() {
	d.cancel()
	d.out.Close()
	d.cmd.Wait()
}
