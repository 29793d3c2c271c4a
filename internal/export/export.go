// Package export рендерит проект офлайн через тот же компоновщик, что и превью,
// записывает его через ffmpeg и муксит смешанный звук.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/cutstudio/internal/config"
	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/renderer"
	"github.com/ivlev/cutstudio/internal/scheduler"
	"github.com/ivlev/cutstudio/internal/source"
	"github.com/ivlev/cutstudio/internal/system"
	"github.com/ivlev/cutstudio/internal/timeline"
	"github.com/ivlev/cutstudio/internal/video"
)

var (
	ErrUnsupportedFormat    = video.ErrUnsupportedFormat
	ErrNoContent            = errors.New("nothing to export")
	ErrTooManyFrameFailures = errors.New("too many failed frames")
)

type Options struct {
	Width, Height int
	FPS           int
	Formats       []string
	Quality       int
	OutputDir     string
	Workers       int
	// Realtime включает темп по настенным часам: цикл ждет срока каждого кадра, медиа
	// идут по системным часам, и экспорт длится столько же, сколько таймлайн.
	// По умолчанию (false) темпа нет вовсе: экспорт идет офлайн на виртуальных часах,
	// которые за итерацию сдвигаются ровно на период кадра. Времена кадров
	// детерминированы, а экспорт идет так быстро, как успевает рендер.
	Realtime            bool
	MaxFailureRatio     float64
	MinFramesForBreaker int

	ShowStats bool
	StatsLog  string
	Build     string
}

func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Width:               cfg.Canvas.Width,
		Height:              cfg.Canvas.Height,
		FPS:                 cfg.Canvas.FPS,
		Formats:             cfg.Export.Formats,
		Quality:             cfg.Export.Quality,
		OutputDir:           cfg.Export.OutputDir,
		Workers:             cfg.Export.Workers,
		Realtime:            cfg.Export.Realtime,
		MaxFailureRatio:     cfg.Export.MaxFailureRatio,
		MinFramesForBreaker: cfg.Export.MinFramesForBreaker,
		ShowStats:           cfg.Stats.Show,
		StatsLog:            cfg.Stats.Log,
		Build:               cfg.BuildVersion,
	}
}

type RecorderFactory func(path string, width, height, fps int, f video.Format, quality int) video.Recorder

type MuxFunc func(ctx context.Context, videoPath string, tracks []video.AudioTrack, duration float64, f video.Format, out string) error

// Deps - зависимости экспортера. Пустые recorder и mux означают ffmpeg.
type Deps struct {
	Caps        *system.Capabilities
	Images      *source.ImageCache
	OpenMedia   func(clock media.Clock) media.Factory // nil: без воспроизведения медиа
	ProbeAudio  AudioProbe
	NewRecorder RecorderFactory
	Mux         MuxFunc
}

// Result описывает готовый файл экспорта.
type Result struct {
	RunID        string
	Path         string
	Name         string
	MIMEType     string
	Duration     float64
	Frames       int
	FailedFrames int
	Cancelled    bool
}

// Exporter выполняет экспорты по одному. Медиа-хэндлы и source-узлы микшера живут
// между прогонами.
type Exporter struct {
	opts   Options
	deps   Deps
	clock  media.Clock
	vclock *media.VirtualClock
	pool   *media.Pool
	mixer  *Mixer
	comp   *scheduler.Compositor
}

func New(cfg *config.Config, deps Deps) *Exporter {
	opts := OptionsFrom(cfg)
	e := &Exporter{opts: opts, deps: deps}
	if opts.Realtime {
		e.clock = media.SystemClock
	} else {
		e.vclock = media.NewVirtualClock()
		e.clock = e.vclock
	}
	if e.deps.Images == nil {
		e.deps.Images = source.NewImageCache(cfg.Canvas.DPI)
	}
	if e.deps.NewRecorder == nil {
		e.deps.NewRecorder = func(path string, w, h, fps int, f video.Format, q int) video.Recorder {
			return video.NewFFmpegRecorder(path, w, h, fps, f, q)
		}
	}
	if e.deps.Mux == nil {
		e.deps.Mux = video.Mux
	}
	if deps.OpenMedia != nil {
		e.pool = media.NewPool(deps.OpenMedia(e.clock))
	} else {
		e.pool = media.NewPool(func(src string) (media.Handle, error) {
			return nil, fmt.Errorf("media playback disabled")
		})
	}
	e.mixer = NewMixer(deps.ProbeAudio)
	e.comp = scheduler.NewCompositor(cfg, e.pool)
	return e
}

// Mixer отдает общий аудиограф.
func (e *Exporter) Mixer() *Mixer { return e.mixer }

func (e *Exporter) Close() error { return e.pool.Close() }

// Duration - протяженность контента: самый поздний конец элемента, без минимума проекта.
func Duration(s project.State) float64 {
	return timeline.ContentExtent(s.Elements)
}

type savedHandle struct {
	h      media.Handle
	paused bool
	muted  bool
	time   float64
}

// Export рендерит s. Ошибки подготовки прерывают экспорт до начала записи. Ошибки
// отдельных кадров логируются и считаются; если падает большинство кадров, предохранитель
// возвращает ErrTooManyFrameFailures. Отмена ctx останавливает экспорт, обрезанный файл
// сохраняется.
func (e *Exporter) Export(ctx context.Context, s project.State) (*Result, error) {
	wallStart := time.Now()
	duration := Duration(s)
	if duration <= 0 {
		return nil, ErrNoContent
	}
	if e.deps.Caps == nil {
		return nil, fmt.Errorf("%w: no encoder capabilities", ErrUnsupportedFormat)
	}
	format, err := video.Negotiate(e.opts.Formats, e.deps.Caps)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[*] Экспорт: %.2fs, %dx%d @ %d FPS, %s\n", duration, e.opts.Width, e.opts.Height, e.opts.FPS, format)

	if failed, err := e.deps.Images.Preload(ctx, imageSources(s.Elements), e.opts.Workers); err != nil {
		return nil, fmt.Errorf("preload images: %w", err)
	} else if failed > 0 {
		log.Printf("[!] Не удалось загрузить изображений: %d", failed)
	}

	saved := e.connect(s.Elements)
	defer e.mixer.DisconnectAll()

	if err := os.MkdirAll(e.opts.OutputDir, 0755); err != nil {
		e.restore(saved)
		return nil, err
	}
	runID := uuid.NewString()
	name := fmt.Sprintf("export_%s.%s", time.Now().Format("2006-01-02_15-04-05"), format.Ext())
	res := &Result{
		RunID:    runID,
		Name:     name,
		Path:     filepath.Join(e.opts.OutputDir, name),
		MIMEType: format.MIMEType(),
	}
	tmp := filepath.Join(e.opts.OutputDir, fmt.Sprintf(".%s.video.%s", runID, format.Ext()))

	rec := e.deps.NewRecorder(tmp, e.opts.Width, e.opts.Height, e.opts.FPS, format, e.opts.Quality)
	// энкодер переживает отмену, чтобы обрезанный файл можно было завершить
	if err := rec.Start(context.WithoutCancel(ctx)); err != nil {
		rec.Close()
		os.Remove(tmp)
		e.restore(saved)
		return nil, fmt.Errorf("start recorder: %w", err)
	}

	elapsed, loopErr := e.loop(ctx, s, duration, rec, res)

	// завершаем всегда, и после отмены, и после предохранителя
	e.restore(saved)
	tracks := e.mixer.Tracks()
	closeErr := rec.Close()
	if loopErr != nil || closeErr != nil {
		os.Remove(tmp)
		if loopErr != nil {
			return nil, loopErr
		}
		return nil, fmt.Errorf("finalize recorder: %w", closeErr)
	}

	res.Duration = duration
	if res.Cancelled {
		res.Duration = elapsed
	}
	muxCtx := context.WithoutCancel(ctx)
	if err := e.deps.Mux(muxCtx, tmp, tracks, res.Duration, format, res.Path); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	os.Remove(tmp)

	if e.opts.ShowStats {
		e.report(res, time.Since(wallStart))
	}
	return res, nil
}

// loop делает по одному тику компоновщика и отрисовке на кадр, по прошедшему времени
// часов. Возвращает достигнутое время таймлайна.
func (e *Exporter) loop(ctx context.Context, s project.State, duration float64, rec video.Recorder, res *Result) (float64, error) {
	e.comp.Reset()
	painter := renderer.NewPainter(e.opts.Width, e.opts.Height, e.deps.Images, e.pool)
	canvas := system.GetImage(e.opts.Width, e.opts.Height)
	defer system.PutImage(canvas)

	step := time.Second / time.Duration(max(e.opts.FPS, 1))
	start := e.clock.Now()
	lastReport := -1
	elapsed := 0.0

	for {
		elapsed = e.clock.Now().Sub(start).Seconds()
		if elapsed >= duration {
			break
		}
		if ctx.Err() != nil {
			res.Cancelled = true
			fmt.Printf("\n[!] Экспорт отменен на %.2fs\n", elapsed)
			return elapsed, nil
		}

		frame := e.comp.Tick(s, elapsed, scheduler.ModeExport)
		for _, in := range frame.Instructions {
			if in.Element.Kind.Scrubbable() {
				e.mixer.SetGain(in.Element.ID, elapsed, in.Gain)
			}
		}
		perr := painter.Paint(canvas, frame)
		werr := rec.WriteFrame(canvas)
		res.Frames++
		if err := errors.Join(perr, werr); err != nil {
			res.FailedFrames++
			log.Printf("[!] Frame %d (%.3fs): %v", res.Frames, elapsed, err)
			if e.breakerTripped(res) {
				fmt.Println()
				return elapsed, fmt.Errorf("%w: %d of %d frames", ErrTooManyFrameFailures, res.FailedFrames, res.Frames)
			}
		}

		if sec := int(elapsed); sec != lastReport {
			lastReport = sec
			fmt.Printf("\r[>] Экспорт: %.0f/%.0fs", elapsed, duration)
		}
		e.wait(ctx, start, res.Frames, step)
	}
	fmt.Printf("\r[>] Экспорт: %.0f/%.0fs\n", duration, duration)
	return duration, nil
}

func (e *Exporter) breakerTripped(res *Result) bool {
	if e.opts.MaxFailureRatio <= 0 || res.Frames < e.opts.MinFramesForBreaker {
		return false
	}
	return float64(res.FailedFrames)/float64(res.Frames) > e.opts.MaxFailureRatio
}

// wait переходит к следующему кадру: виртуальные часы прыгают, на настенных спим.
func (e *Exporter) wait(ctx context.Context, start time.Time, frames int, step time.Duration) {
	if e.vclock != nil {
		e.vclock.Advance(step)
		return
	}
	next := start.Add(time.Duration(frames) * step)
	d := time.Until(next)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// connect открывает хэндл каждого медиа-элемента, запоминает его состояние и подключает
// к микшеру. При ошибке выпадает только звук этого элемента.
func (e *Exporter) connect(elements []timeline.Element) []savedHandle {
	var saved []savedHandle
	for _, el := range elements {
		if !el.Kind.Scrubbable() {
			continue
		}
		h, err := e.pool.Get(el)
		if err != nil {
			log.Printf("[!] Media %s unavailable: %v", el.ID, err)
			continue
		}
		saved = append(saved, savedHandle{h: h, paused: h.Paused(), muted: h.Muted(), time: h.CurrentTime()})
		if err := e.mixer.Connect(el, h); err != nil {
			log.Printf("[!] Audio of %s dropped from the mix: %v", el.ID, err)
		}
	}
	return saved
}

func (e *Exporter) restore(saved []savedHandle) {
	for _, sh := range saved {
		if err := sh.h.Seek(sh.time); err != nil {
			log.Printf("[!] Restore %s: %v", sh.h.Src(), err)
		}
		if sh.paused {
			sh.h.Pause()
		} else if err := sh.h.Play(); err != nil {
			log.Printf("[!] Restore %s: %v", sh.h.Src(), err)
		}
		sh.h.SetMuted(sh.muted)
	}
}

func (e *Exporter) report(res *Result, wall time.Duration) {
	r := system.RunReport{
		Build:        e.opts.Build,
		Output:       res.Path,
		Duration:     res.Duration,
		Frames:       res.Frames,
		FailedFrames: res.FailedFrames,
		Wall:         wall,
		Host:         system.SampleHost(),
	}
	fmt.Print(r.String())
	if e.opts.StatsLog == "" {
		return
	}
	if err := r.AppendLog(e.opts.StatsLog); err != nil {
		fmt.Printf("[!] Не удалось записать %s: %v\n", e.opts.StatsLog, err)
	}
}

func imageSources(elements []timeline.Element) []string {
	var srcs []string
	for _, el := range elements {
		if el.Kind == timeline.KindImage && el.Src() != "" {
			srcs = append(srcs, el.Src())
		}
	}
	return srcs
}
