package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ivlev/cutstudio/internal/config"
	"github.com/ivlev/cutstudio/internal/export"
	"github.com/ivlev/cutstudio/internal/interaction"
	"github.com/ivlev/cutstudio/internal/library"
	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/renderer"
	"github.com/ivlev/cutstudio/internal/scheduler"
	"github.com/ivlev/cutstudio/internal/shell"
	"github.com/ivlev/cutstudio/internal/source"
	"github.com/ivlev/cutstudio/internal/system"
	"github.com/ivlev/cutstudio/internal/timeline"
)

const projectsDir = "projects"

func newApp() *cli.App {
	return &cli.App{
		Name:    "cutstudio",
		Usage:   "Видеоредактор с таймлайном: сборка, превью и экспорт проектов",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Файл конфигурации (по умолчанию: ./" + config.DefaultFile + ")"},
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Файл проекта (по умолчанию: самый свежий в ./" + projectsDir + ")"},
			&cli.StringFlag{Name: "preset", Usage: "Пресет холста: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)"},
			&cli.IntFlag{Name: "fps", Usage: "Кадров в секунду"},
			&cli.IntFlag{Name: "quality", Usage: "Качество видео (0 = авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100kbit/s)"},
			&cli.StringFlag{Name: "output-dir", Usage: "Папка для экспорта"},
		},
		Commands: []*cli.Command{
			newCmd(),
			addCmd(),
			splitCmd(),
			lsCmd(),
			frameCmd(),
			playCmd(),
			exportCmd(),
			libraryCmd(),
			shellCmd(),
		},
	}
}

// loadConfig читает конфиг и применяет глобальные флаги поверх него.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.BuildVersion = Version
	if err := cfg.ApplyPreset(c.String("preset")); err != nil {
		return nil, err
	}
	if v := c.Int("fps"); v > 0 {
		cfg.Canvas.FPS = v
	}
	if v := c.Int("quality"); v > 0 {
		cfg.Export.Quality = v
	}
	if v := c.String("output-dir"); v != "" {
		cfg.Export.OutputDir = v
	}
	return cfg, cfg.Validate()
}

// forProject поворачивает холст под ориентацию проекта.
func forProject(cfg *config.Config, s project.State) *config.Config {
	out := *cfg
	portrait := s.Aspect == project.AspectPortrait
	if portrait != cfg.Portrait() {
		out.Canvas.Width, out.Canvas.Height = cfg.Canvas.Height, cfg.Canvas.Width
	}
	return &out
}

func projectPath(c *cli.Context) (string, error) {
	if p := c.String("project"); p != "" {
		return p, nil
	}
	p, err := project.FindLatestProject(projectsDir)
	if err != nil {
		return "", fmt.Errorf("%w (create one with `cutstudio new`)", err)
	}
	fmt.Printf("[*] Проект: %s\n", p)
	return p, nil
}

func openStore(c *cli.Context) (*project.Store, string, error) {
	path, err := projectPath(c)
	if err != nil {
		return nil, "", err
	}
	s, err := project.ReadDocument(path)
	if err != nil {
		return nil, "", err
	}
	return project.NewStore(s), path, nil
}

func save(store *project.Store, path string) error {
	if err := project.WriteDocument(store.Snapshot(), path); err != nil {
		return err
	}
	fmt.Printf("[+] Сохранено: %s\n", path)
	return nil
}

func floatArg(c *cli.Context, i int, name string) (float64, error) {
	var v float64
	if _, err := fmt.Sscan(c.Args().Get(i), &v); err != nil {
		return 0, fmt.Errorf("bad %s %q", name, c.Args().Get(i))
	}
	return v, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func newCmd() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Создать пустой проект",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "portrait", Usage: "Вертикальный холст"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("project")
			if path == "" {
				if err := os.MkdirAll(projectsDir, 0755); err != nil {
					return err
				}
				path = project.GenerateProjectPath(projectsDir)
			}
			s := project.NewState()
			if c.Bool("portrait") {
				s.Aspect = project.AspectPortrait
			}
			return save(project.NewStore(s), path)
		},
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Добавить элемент: video|audio|image <src>, text <текст>, transition <имя>",
		ArgsUsage: "<kind> <src|text|name>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "start", Aliases: []string{"s"}, Usage: "Время начала в секундах"},
			&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Usage: "Длительность в секундах (для медиа определяется через ffprobe)"},
			&cli.IntFlag{Name: "track", Aliases: []string{"t"}, Usage: "Дорожка"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return errors.New("usage: add <kind> <src|text|name>")
			}
			store, path, err := openStore(c)
			if err != nil {
				return err
			}
			el, err := buildElement(c.Context, c.Args().Get(0), c.Args().Get(1), c.Float64("start"), c.Float64("duration"), c.Int("track"))
			if err != nil {
				return err
			}
			if err := store.Dispatch(project.AddElement{Element: el}); err != nil {
				return err
			}
			fmt.Printf("[+] Добавлен %s %s\n", el.Kind, el.ID)
			return save(store, path)
		},
	}
}

// buildElement создает элемент. Длительность медиа без явного значения берется из ffprobe.
func buildElement(ctx context.Context, kind, arg string, start, duration float64, track int) (timeline.Element, error) {
	id := timeline.NewID()
	still := duration
	if still <= 0 {
		still = timeline.DefaultStillDuration
	}
	switch kind {
	case "text":
		return timeline.NewText(id, arg, start, still, track), nil
	case "transition":
		tr, ok := timeline.ParseTransition(arg)
		if !ok {
			return timeline.Element{}, fmt.Errorf("unknown transition %q", arg)
		}
		if duration <= 0 {
			still = 1
		}
		return timeline.NewTransition(id, tr, start, still, track), nil
	}

	k, err := timeline.ParseKind(kind)
	if err != nil {
		return timeline.Element{}, err
	}
	if k == timeline.KindImage {
		return timeline.NewImage(id, arg, start, still, track), nil
	}

	probed, err := system.ProbeDuration(ctx, arg)
	if err != nil {
		return timeline.Element{}, fmt.Errorf("probe %s: %w", arg, err)
	}
	if duration <= 0 {
		duration = probed
	}
	var el timeline.Element
	if k == timeline.KindVideo {
		el = timeline.NewVideo(id, arg, start, duration, track)
	} else {
		el = timeline.NewAudio(id, arg, start, duration, track)
	}
	el.Media.SourceDuration = probed
	return el, nil
}

func splitCmd() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Разрезать элемент в момент таймлайна",
		ArgsUsage: "<id> <time>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("usage: split <id> <time>")
			}
			at, err := floatArg(c, 1, "time")
			if err != nil {
				return err
			}
			store, path, err := openStore(c)
			if err != nil {
				return err
			}
			if err := store.Dispatch(project.SplitAt{ID: c.Args().Get(0), Time: at}); err != nil {
				return err
			}
			return save(store, path)
		},
	}
}

func lsCmd() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "Список элементов проекта",
		Action: func(c *cli.Context) error {
			store, path, err := openStore(c)
			if err != nil {
				return err
			}
			sh := shell.New(store, path)
			sh.Exec("ls")
			return nil
		},
	}
}

// newExporter подключает конвейер экспорта к ffmpeg.
func newExporter(ctx context.Context, cfg *config.Config, caps *system.Capabilities) *export.Exporter {
	return export.New(cfg, export.Deps{
		Caps:   caps,
		Images: source.NewImageCache(cfg.Canvas.DPI),
		OpenMedia: func(clock media.Clock) media.Factory {
			return media.ClipFactory(ctx, clock, cfg.Canvas.Width, cfg.Canvas.Height, float64(cfg.Canvas.FPS))
		},
		ProbeAudio: func(src string) (bool, error) {
			return system.ProbeHasAudio(ctx, src)
		},
	})
}

func frameCmd() *cli.Command {
	return &cli.Command{
		Name:      "frame",
		Usage:     "Сохранить кадр в момент времени в PNG",
		ArgsUsage: "<time> <out.png>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("usage: frame <time> <out.png>")
			}
			t, err := floatArg(c, 0, "time")
			if err != nil {
				return err
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, _, err := openStore(c)
			if err != nil {
				return err
			}
			s := store.Snapshot()
			e := newExporter(c.Context, forProject(cfg, s), nil)
			defer e.Close()
			if err := e.WriteStill(c.Context, s, t, c.Args().Get(1)); err != nil {
				return err
			}
			fmt.Printf("[+++] Кадр %.2fs: %s\n", t, c.Args().Get(1))
			return nil
		},
	}
}

// previewSink рисует каждый показанный кадр вне экрана и считает их.
type previewSink struct {
	painter *renderer.Painter
	canvas  *image.RGBA
	frames  int
	errors  int
	last    int
}

func (p *previewSink) Present(f renderer.Frame) error {
	p.frames++
	err := p.painter.Paint(p.canvas, f)
	if err != nil {
		p.errors++
	}
	if sec := int(f.Time); sec != p.last {
		p.last = sec
		fmt.Printf("\r[>] Превью: %5.1fs, слоев: %d", f.Time, len(f.Instructions))
	}
	return err
}

// newPlayer собирает цикл превью. Пул медиа закрывает вызывающий.
func newPlayer(ctx context.Context, cfg *config.Config, store *project.Store) (*scheduler.Player, *previewSink, *media.Pool) {
	pool := media.NewPool(media.ClipFactory(ctx, media.SystemClock, cfg.Canvas.Width, cfg.Canvas.Height, float64(cfg.Canvas.FPS)))
	images := source.NewImageCache(cfg.Canvas.DPI)
	sink := &previewSink{
		painter: renderer.NewPainter(cfg.Canvas.Width, cfg.Canvas.Height, images, pool),
		canvas:  image.NewRGBA(image.Rect(0, 0, cfg.Canvas.Width, cfg.Canvas.Height)),
		last:    -1,
	}
	if failed, err := images.Preload(ctx, imageSrcs(store.Snapshot()), cfg.Export.Workers); err == nil && failed > 0 {
		fmt.Printf("[!] Не удалось загрузить изображений: %d\n", failed)
	}
	comp := scheduler.NewCompositor(cfg, pool)
	player := scheduler.NewPlayer(store, comp, sink, cfg.Canvas.FPS)
	return player, sink, pool
}

func imageSrcs(s project.State) []string {
	var srcs []string
	for _, el := range s.Elements {
		if el.Kind == timeline.KindImage {
			srcs = append(srcs, el.Src())
		}
	}
	return srcs
}

func playCmd() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Прогнать превью без экрана с заданного момента до конца или Ctrl-C",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "from", Usage: "Время начала"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, _, err := openStore(c)
			if err != nil {
				return err
			}
			cfg = forProject(cfg, store.Snapshot())
			ctx, stop := signalContext(c)
			defer stop()

			player, sink, pool := newPlayer(ctx, cfg, store)
			defer pool.Close()
			if err := store.Dispatch(project.SetPlayhead{Time: c.Float64("from")}); err != nil {
				return err
			}
			if err := player.Play(ctx); err != nil {
				return err
			}
			player.Wait()
			fmt.Printf("\n[*] Показано кадров: %d (с ошибками: %d), остановка на %.2fs\n",
				sink.frames, sink.errors, store.Snapshot().Playhead)
			return nil
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Экспортировать проект в видеофайл",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "realtime", Usage: "Экспорт в темпе настенных часов (по умолчанию офлайн, на виртуальных часах)"},
			&cli.BoolFlag{Name: "stats", Usage: "Вывести и записать отчет о производительности"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("realtime") {
				cfg.Export.Realtime = true
			}
			if c.Bool("stats") {
				cfg.Stats.Show = true
			}
			if !system.HasFFmpeg() {
				return errors.New("ffmpeg not found in PATH")
			}
			store, _, err := openStore(c)
			if err != nil {
				return err
			}
			s := store.Snapshot()
			cfg = forProject(cfg, s)

			ctx, stop := signalContext(c)
			defer stop()
			caps, err := system.ProbeCapabilities(ctx)
			if err != nil {
				return err
			}
			if enc := caps.BestH264Encoder(); enc != "" && enc != "libx264" {
				fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", enc)
			}

			e := newExporter(ctx, cfg, caps)
			defer e.Close()
			res, err := e.Export(ctx, s)
			if err != nil {
				return err
			}
			if res.Cancelled {
				fmt.Printf("[!] Экспорт отменен, сохранено %.2fs\n", res.Duration)
			}
			fmt.Printf("[+++] Успех! Результат: %s (%s, кадров: %d, с ошибками: %d)\n", res.Path, res.MIMEType, res.Frames, res.FailedFrames)
			return nil
		},
	}
}

func openCatalog(c *cli.Context) (*library.Catalog, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	cat, err := library.Init(cfg.Library.Dir)
	if err != nil {
		return nil, nil, err
	}
	cat.DPI = cfg.Canvas.DPI
	return cat, cfg, nil
}

func printItems(items []timeline.LibraryItem) {
	for _, it := range items {
		d := "-"
		if it.Duration != nil {
			d = fmt.Sprintf("%.2fs", *it.Duration)
		}
		fmt.Printf("%-36s %-6s %-12s %8s  %s\n", it.ID, it.Kind, it.Category, d, it.Name)
	}
}

func libraryCmd() *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Библиотека ассетов",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Импортировать медиафайлы",
				ArgsUsage: "<file>...",
				Action: func(c *cli.Context) error {
					cat, cfg, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					items, err := cat.ImportAll(c.Context, c.Args().Slice(), cfg.Export.Workers)
					printItems(items)
					return err
				},
			},
			{
				Name:      "import-deck",
				Usage:     "Импортировать все страницы PDF или папки с изображениями",
				ArgsUsage: "<pdf|dir>",
				Action: func(c *cli.Context) error {
					cat, cfg, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					items, err := cat.ImportDeck(c.Context, c.Args().First(), cfg.Export.Workers)
					printItems(items)
					return err
				},
			},
			{
				Name:      "qr",
				Usage:     "Сгенерировать QR-код",
				ArgsUsage: "<content>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 512, Usage: "Сторона в пикселях"},
				},
				Action: func(c *cli.Context) error {
					cat, _, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					item, err := cat.GenerateQR(c.Args().First(), c.Int("size"))
					if err != nil {
						return err
					}
					printItems([]timeline.LibraryItem{item})
					return nil
				},
			},
			{
				Name:  "ls",
				Usage: "Список элементов библиотеки",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Только эта категория"},
				},
				Action: func(c *cli.Context) error {
					cat, _, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					if err := cat.SeedTransitions(); err != nil {
						return err
					}
					items, err := cat.List(c.String("category"))
					if err != nil {
						return err
					}
					printItems(items)
					return nil
				},
			},
			{
				Name:      "rm",
				Usage:     "Удалить элементы библиотеки",
				ArgsUsage: "<id>...",
				Action: func(c *cli.Context) error {
					cat, _, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					for _, id := range c.Args().Slice() {
						if err := cat.Delete(id); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:      "place",
				Usage:     "Поставить элемент библиотеки на таймлайн проекта",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "start", Aliases: []string{"s"}},
					&cli.IntFlag{Name: "track", Aliases: []string{"t"}},
				},
				Action: func(c *cli.Context) error {
					cat, _, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					item, err := cat.Get(c.Args().First())
					if err != nil {
						return err
					}
					store, path, err := openStore(c)
					if err != nil {
						return err
					}
					var intents []project.Intent
					if _, ok := store.Snapshot().LibraryItem(item.ID); !ok {
						intents = append(intents, project.AddLibraryItem{Item: item})
					}
					intents = append(intents, project.PlaceLibraryItem{ItemID: item.ID, Start: c.Float64("start"), TrackID: c.Int("track")})
					if err := store.Dispatch(intents...); err != nil {
						return err
					}
					return save(store, path)
				},
			},
		},
	}
}

func shellCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Интерактивный режим редактирования",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, path, err := openStore(c)
			if err != nil {
				return err
			}
			cfg = forProject(cfg, store.Snapshot())
			ctx, stop := signalContext(c)
			defer stop()

			sh := shell.New(store, path)
			sh.Pointer = interaction.NewEngine(store, cfg.Timeline)
			player, _, pool := newPlayer(ctx, cfg, store)
			defer pool.Close()
			sh.Player = player
			sh.Media = pool
			caps, err := system.ProbeCapabilities(ctx)
			if err != nil {
				fmt.Printf("[!] Экспорт недоступен: %v\n", err)
			}
			sh.Exporter = newExporter(ctx, cfg, caps)
			defer sh.Exporter.Close()

			if cat, err := library.Init(cfg.Library.Dir); err == nil {
				defer cat.Close()
				sh.Catalog = cat
			} else {
				fmt.Printf("[!] Библиотека недоступна: %v\n", err)
			}
			fmt.Printf("[*] Редактирование %s, команда help для справки\n", filepath.Base(path))
			return sh.Run(ctx)
		},
	}
}
