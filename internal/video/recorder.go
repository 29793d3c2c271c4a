package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"

	"github.com/ivlev/cutstudio/internal/system"
)

// Recorder записывает кадры холста в немой видеофайл.
type Recorder interface {
	Start(ctx context.Context) error
	WriteFrame(img image.Image) error
	// Close завершает файл. Безопасно вызывать после неудачного Start или дважды.
	Close() error
	Path() string
}

// FFmpegRecorder передает сырые RGBA кадры в ffmpeg через пайп.
type FFmpegRecorder struct {
	path          string
	width, height int
	fps           int
	format        Format
	quality       int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	closed bool
}

func NewFFmpegRecorder(path string, width, height, fps int, format Format, quality int) *FFmpegRecorder {
	return &FFmpegRecorder{path: path, width: width, height: height, fps: fps, format: format, quality: quality}
}

func (r *FFmpegRecorder) Path() string { return r.path }

// Args - командная строка ffmpeg для прохода записи.
func (r *FFmpegRecorder) Args() []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", r.width, r.height),
		"-framerate", fmt.Sprintf("%d", r.fps),
		"-i", "-",
		"-an",
		"-pix_fmt", "yuv420p",
		"-c:v", r.format.Encoder,
	}
	args = append(args, system.QualityArgs(r.format.Encoder, r.quality)...)
	return append(args, "-f", r.format.Container, r.path)
}

func (r *FFmpegRecorder) Start(ctx context.Context) error {
	r.cmd = exec.CommandContext(ctx, "ffmpeg", r.Args()...)
	r.cmd.Stderr = &r.stderr

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	r.stdin = stdin
	return nil
}

func (r *FFmpegRecorder) WriteFrame(img image.Image) error {
	if r.stdin == nil || r.closed {
		return fmt.Errorf("recorder not running")
	}
	if b := img.Bounds(); b.Dx() != r.width || b.Dy() != r.height {
		return fmt.Errorf("frame %dx%d, recorder expects %dx%d", b.Dx(), b.Dy(), r.width, r.height)
	}
	if err := writeRawRGBA(r.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

func (r *FFmpegRecorder) Close() error {
	if r.closed || r.cmd == nil {
		r.closed = true
		return nil
	}
	r.closed = true
	if r.stdin != nil {
		r.stdin.Close()
	}
	if err := r.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, r.stderr.String())
	}
	return nil
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
