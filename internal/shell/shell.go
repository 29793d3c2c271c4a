// Package shell is an interactive prompt that edits a project through intents.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ivlev/cutstudio/internal/config"
	"github.com/ivlev/cutstudio/internal/export"
	"github.com/ivlev/cutstudio/internal/interaction"
	"github.com/ivlev/cutstudio/internal/library"
	"github.com/ivlev/cutstudio/internal/media"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/scheduler"
	"github.com/ivlev/cutstudio/internal/timeline"
)

var errUsage = errors.New("usage")

// Shell holds the collaborators commands act on. Player, Exporter, Catalog and Media are
// optional; commands needing a missing one report it.
type Shell struct {
	Store    *project.Store
	Pointer  *interaction.Engine
	Player   *scheduler.Player
	Exporter *export.Exporter
	Catalog  *library.Catalog
	Media    *media.Pool // preview handles, pruned after edits that drop elements
	Path     string
	Out      io.Writer

	ctx context.Context
}

func New(store *project.Store, path string) *Shell {
	return &Shell{
		Store:   store,
		Pointer: interaction.NewEngine(store, config.Default().Timeline),
		Path:    path,
		Out:     os.Stdout,
		ctx:     context.Background(),
	}
}

// Run reads commands until exit, EOF or Ctrl-C.
func (sh *Shell) Run(ctx context.Context) error {
	sh.ctx = ctx
	historyFile := filepath.Join(os.TempDir(), ".cutstudio_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "cut> ",
		HistoryFile:  historyFile,
		AutoComplete: completer(),
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(sh.Out, "Bye.")
				break
			}
			return err
		}
		if !sh.Exec(line) {
			break
		}
	}
	if sh.Player != nil {
		sh.Player.Pause()
	}
	return nil
}

func completer() readline.AutoCompleter {
	kinds := make([]readline.PrefixCompleterInterface, 0, 5)
	for _, k := range []string{"video", "audio", "image", "text", "transition"} {
		kinds = append(kinds, readline.PcItem(k))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("add", kinds...),
		readline.PcItem("lib"),
		readline.PcItem("move"),
		readline.PcItem("split"),
		readline.PcItem("rm"),
		readline.PcItem("drag"),
		readline.PcItem("resize"),
		readline.PcItem("marquee"),
		readline.PcItem("click"),
		readline.PcItem("sel"),
		readline.PcItem("seek"),
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("zoom"),
		readline.PcItem("aspect", readline.PcItem("landscape"), readline.PcItem("portrait")),
		readline.PcItem("ls"),
		readline.PcItem("save"),
		readline.PcItem("frame"),
		readline.PcItem("export"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// Exec runs one command line and reports whether the shell should keep going.
// Failures are printed, never returned.
func (sh *Shell) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := strings.TrimPrefix(parts[0], "/"), parts[1:]
	if cmd == "exit" || cmd == "quit" || cmd == "q" {
		return false
	}

	var err error
	switch cmd {
	case "help", "h":
		sh.help()
	case "add":
		err = sh.add(args)
	case "lib":
		err = sh.placeLibrary(args)
	case "move", "mv":
		err = sh.move(args)
	case "split":
		err = sh.split(args)
	case "rm":
		if len(args) == 0 {
			err = fmt.Errorf("%w: rm <id>...", errUsage)
			break
		}
		if err = sh.Store.Dispatch(project.RemoveElements{IDs: args}); err == nil {
			sh.prune()
		}
	case "drag":
		err = sh.drag(args)
	case "resize":
		err = sh.resize(args)
	case "marquee":
		err = sh.marquee(args)
	case "click":
		err = sh.click(args)
	case "sel":
		err = sh.Store.Dispatch(project.SetSelection{IDs: args})
	case "seek":
		err = sh.seek(args)
	case "play", "p":
		err = sh.play()
	case "pause":
		err = sh.pause()
	case "zoom":
		var v float64
		if v, err = floatArg(args, 0, "zoom <px/s>"); err == nil {
			err = sh.Store.Dispatch(project.SetZoom{PixelsPerSecond: v})
		}
	case "aspect":
		err = sh.aspect(args)
	case "ls":
		sh.list()
	case "save":
		err = sh.save(args)
	case "frame":
		err = sh.frame(args)
	case "export":
		err = sh.export()
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintf(sh.Out, "[!] %v\n", err)
	}
	return true
}

func (sh *Shell) help() {
	fmt.Fprint(sh.Out, `Commands:
  add <video|audio|image> <src> <start> <duration> [track]
  add text <start> <duration> <text...>
  add transition <name> <start> <duration> [track]
  lib <item-id> <start> [track]     place a library item
  move <id> <start> [track]
  split <id> <time>
  rm <id>...                        sel [id]...
  drag <id> <dx_px> <dy_px>         pointer drag with snapping
  resize <id> start|end <dx_px>
  marquee <x0> <y0> <x1> <y1>       click <x_px> [y_px]
  seek <time>                       play | pause
  zoom <px/s>                       aspect landscape|portrait
  ls                                save [path]
  frame <time> <out.png>            export
  exit
`)
}

func floatArg(args []string, i int, usage string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", args[i])
	}
	return v, nil
}

// trackArg reads an optional track argument, 0 when absent.
func trackArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("bad track %q", args[i])
	}
	return v, nil
}

func (sh *Shell) add(args []string) error {
	const usage = "add <kind> ... (see help)"
	if len(args) < 1 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	id := timeline.NewID()

	if args[0] == "text" {
		start, err := floatArg(args, 1, usage)
		if err != nil {
			return err
		}
		dur, err := floatArg(args, 2, usage)
		if err != nil {
			return err
		}
		if len(args) < 4 {
			return fmt.Errorf("%w: add text <start> <duration> <text...>", errUsage)
		}
		el := timeline.NewText(id, strings.Join(args[3:], " "), start, dur, 0)
		return sh.addElement(el)
	}

	if len(args) < 4 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	start, err := floatArg(args, 2, usage)
	if err != nil {
		return err
	}
	dur, err := floatArg(args, 3, usage)
	if err != nil {
		return err
	}
	track, err := trackArg(args, 4)
	if err != nil {
		return err
	}

	var el timeline.Element
	switch args[0] {
	case "transition":
		tr, ok := timeline.ParseTransition(args[1])
		if !ok {
			return fmt.Errorf("unknown transition %q", args[1])
		}
		el = timeline.NewTransition(id, tr, start, dur, track)
	default:
		kind, err := timeline.ParseKind(args[0])
		if err != nil {
			return err
		}
		switch kind {
		case timeline.KindVideo:
			el = timeline.NewVideo(id, args[1], start, dur, track)
		case timeline.KindAudio:
			el = timeline.NewAudio(id, args[1], start, dur, track)
		case timeline.KindImage:
			el = timeline.NewImage(id, args[1], start, dur, track)
		default:
			return fmt.Errorf("%w: %s", errUsage, usage)
		}
	}
	return sh.addElement(el)
}

func (sh *Shell) addElement(el timeline.Element) error {
	if err := sh.Store.Dispatch(project.AddElement{Element: el}); err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "[+] %s %s at %.2fs on track %d\n", el.Kind, el.ID, el.StartTime, el.TrackID)
	return nil
}

func (sh *Shell) placeLibrary(args []string) error {
	const usage = "lib <item-id> <start> [track]"
	if len(args) < 2 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	start, err := floatArg(args, 1, usage)
	if err != nil {
		return err
	}
	track, err := trackArg(args, 2)
	if err != nil {
		return err
	}

	var intents []project.Intent
	if _, ok := sh.Store.Snapshot().LibraryItem(args[0]); !ok {
		if sh.Catalog == nil {
			return fmt.Errorf("library item %s: %w", args[0], project.ErrNotFound)
		}
		item, err := sh.Catalog.Get(args[0])
		if err != nil {
			return err
		}
		intents = append(intents, project.AddLibraryItem{Item: item})
	}
	intents = append(intents, project.PlaceLibraryItem{ItemID: args[0], Start: start, TrackID: track})
	return sh.Store.Dispatch(intents...)
}

func (sh *Shell) move(args []string) error {
	const usage = "move <id> <start> [track]"
	if len(args) < 2 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	el, ok := sh.Store.Snapshot().Element(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", project.ErrNotFound, args[0])
	}
	start, err := floatArg(args, 1, usage)
	if err != nil {
		return err
	}
	track := el.TrackID
	if len(args) > 2 {
		if track, err = trackArg(args, 2); err != nil {
			return err
		}
	}
	return sh.Store.Dispatch(project.MoveElements{Moves: []project.Move{{ID: el.ID, StartTime: start, TrackID: track}}})
}

func (sh *Shell) split(args []string) error {
	at, err := floatArg(args, 1, "split <id> <time>")
	if err != nil {
		return err
	}
	if err := sh.Store.Dispatch(project.SplitAt{ID: args[0], Time: at}); err != nil {
		return err
	}
	sh.prune()
	return nil
}

func (sh *Shell) prune() {
	if sh.Media != nil {
		sh.Media.Prune(sh.Store.Snapshot().Elements)
	}
}

// rect is where id sits in timeline pixels.
func (sh *Shell) rect(id string) (interaction.Rect, error) {
	el, ok := sh.Store.Snapshot().Element(id)
	if !ok {
		return interaction.Rect{}, fmt.Errorf("%w: %s", project.ErrNotFound, id)
	}
	return sh.Pointer.Geometry().ElementRect(el), nil
}

// gesture presses at from, moves to to and releases there.
func (sh *Shell) gesture(from, to interaction.Point, hit interaction.Hit) error {
	if err := sh.Pointer.PointerDown(from, hit); err != nil {
		return err
	}
	if err := sh.Pointer.PointerMove(to); err != nil {
		sh.Pointer.Cancel()
		return err
	}
	return sh.Pointer.PointerUp(to)
}

// drag grabs the middle of an element, so the move drags the whole selection when the
// element is already part of it.
func (sh *Shell) drag(args []string) error {
	const usage = "drag <id> <dx_px> <dy_px>"
	if len(args) < 3 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	r, err := sh.rect(args[0])
	if err != nil {
		return err
	}
	dx, err := floatArg(args, 1, usage)
	if err != nil {
		return err
	}
	dy, err := floatArg(args, 2, usage)
	if err != nil {
		return err
	}
	from := interaction.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
	hit := sh.Pointer.HitTest(from)
	if hit.ElementID != args[0] {
		hit = interaction.Hit{ElementID: args[0], Kind: interaction.DragMove}
	}
	return sh.gesture(from, interaction.Point{X: from.X + dx, Y: from.Y + dy}, hit)
}

func (sh *Shell) resize(args []string) error {
	const usage = "resize <id> start|end <dx_px>"
	if len(args) < 3 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	r, err := sh.rect(args[0])
	if err != nil {
		return err
	}
	dx, err := floatArg(args, 2, usage)
	if err != nil {
		return err
	}
	from := interaction.Point{Y: r.Y + r.H/2}
	hit := interaction.Hit{ElementID: args[0]}
	switch args[1] {
	case "start":
		from.X, hit.Kind = r.X, interaction.DragResizeStart
	case "end":
		from.X, hit.Kind = r.X+r.W, interaction.DragResizeEnd
	default:
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	return sh.gesture(from, interaction.Point{X: from.X + dx, Y: from.Y}, hit)
}

// marquee always starts on empty space, even when x0,y0 lies over an element.
func (sh *Shell) marquee(args []string) error {
	const usage = "marquee <x0> <y0> <x1> <y1>"
	var c [4]float64
	for i := range c {
		v, err := floatArg(args, i, usage)
		if err != nil {
			return err
		}
		c[i] = v
	}
	if err := sh.gesture(interaction.Point{X: c[0], Y: c[1]}, interaction.Point{X: c[2], Y: c[3]}, interaction.Hit{}); err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "[*] Selected %d\n", len(sh.Store.Snapshot().SelectedIDs()))
	return nil
}

// click selects the element under the pointer, or clears the selection and moves the
// playhead when nothing is there. y defaults to the gap above track 0.
func (sh *Shell) click(args []string) error {
	const usage = "click <x_px> [y_px]"
	x, err := floatArg(args, 0, usage)
	if err != nil {
		return err
	}
	var y float64
	if len(args) > 1 {
		if y, err = floatArg(args, 1, usage); err != nil {
			return err
		}
	}
	pt := interaction.Point{X: x, Y: y}
	if err := sh.Pointer.PointerDown(pt, sh.Pointer.HitTest(pt)); err != nil {
		return err
	}
	return sh.Pointer.PointerUp(pt)
}

func (sh *Shell) seek(args []string) error {
	t, err := floatArg(args, 0, "seek <time>")
	if err != nil {
		return err
	}
	if sh.Player != nil {
		return sh.Player.Seek(t)
	}
	return sh.Store.Dispatch(project.SetPlayhead{Time: t})
}

func (sh *Shell) play() error {
	if sh.Player == nil {
		return sh.Store.Dispatch(project.SetPlaying{Playing: true})
	}
	return sh.Player.Play(sh.ctx)
}

func (sh *Shell) pause() error {
	if sh.Player == nil {
		return sh.Store.Dispatch(project.SetPlaying{Playing: false})
	}
	sh.Player.Pause()
	fmt.Fprintf(sh.Out, "[*] Paused at %.2fs\n", sh.Store.Snapshot().Playhead)
	return nil
}

func (sh *Shell) aspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: aspect landscape|portrait", errUsage)
	}
	return sh.Store.Dispatch(project.SetAspect{Aspect: project.Aspect(args[0])})
}

func (sh *Shell) list() {
	s := sh.Store.Snapshot()
	fmt.Fprintf(sh.Out, "Duration %.2fs, playhead %.2fs, zoom %.0f px/s, %s\n", s.Duration(), s.Playhead, s.Zoom, s.Aspect)
	for _, el := range s.Elements {
		mark := " "
		if s.IsSelected(el.ID) {
			mark = "*"
		}
		label := el.Name
		if label == "" {
			label = el.Src()
		}
		fmt.Fprintf(sh.Out, "%s %-26s %-6s t%d  %7.2f..%-7.2f %s\n",
			mark, el.ID, el.Kind, el.TrackID, el.StartTime, timeline.EndTime(el), label)
	}
}

func (sh *Shell) save(args []string) error {
	path := sh.Path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("%w: save <path>", errUsage)
	}
	if err := project.WriteDocument(sh.Store.Snapshot(), path); err != nil {
		return err
	}
	sh.Path = path
	fmt.Fprintf(sh.Out, "[+] Saved %s\n", path)
	return nil
}

func (sh *Shell) frame(args []string) error {
	const usage = "frame <time> <out.png>"
	t, err := floatArg(args, 0, usage)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	if sh.Exporter == nil {
		return errors.New("frame rendering unavailable")
	}
	if err := sh.Exporter.WriteStill(sh.ctx, sh.Store.Snapshot(), t, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "[+] Wrote %s\n", args[1])
	return nil
}

// export pauses the preview first; only one loop drives playback at a time.
func (sh *Shell) export() error {
	if sh.Exporter == nil {
		return errors.New("export unavailable")
	}
	if sh.Player != nil {
		sh.Player.Pause()
	}
	res, err := sh.Exporter.Export(sh.ctx, sh.Store.Snapshot())
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "[+++] %s (%d frames, %d failed)\n", res.Path, res.Frames, res.FailedFrames)
	return nil
}
