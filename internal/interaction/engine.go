package interaction

import (
	"fmt"
	"math"

	"github.com/ivlev/cutstudio/internal/config"
	"github.com/ivlev/cutstudio/internal/project"
	"github.com/ivlev/cutstudio/internal/timeline"
)

type State int

const (
	Idle State = iota
	Dragging
	Marquee
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Marquee:
		return "marquee"
	}
	return "unknown"
}

type DragKind int

const (
	DragMove DragKind = iota
	DragResizeStart
	DragResizeEnd
)

// Hit is what lies under the pointer. An empty ElementID is the empty track area.
type Hit struct {
	ElementID string
	Kind      DragKind
}

// Engine is the pointer state machine. All changes are dispatched to the store as
// intents, so the next scheduler tick already sees them.
type Engine struct {
	store *project.Store
	cfg   config.Timeline

	state   State
	kind    DragKind
	anchor  Point
	current Point
	pressed string
	ids     []string
	origin  map[string]timeline.Element
}

func NewEngine(store *project.Store, cfg config.Timeline) *Engine {
	return &Engine{store: store, cfg: cfg}
}

func (e *Engine) State() State { return e.state }

// Geometry is the pixel layout at the current zoom.
func (e *Engine) Geometry() Geometry { return e.geometry(e.store.Snapshot()) }

func (e *Engine) geometry(s project.State) Geometry {
	return GeometryFrom(e.cfg, s.Zoom)
}

// HitTest finds the element under pt. Within an element, the outer HandlePx on either
// side are resize grips. Later elements are drawn over earlier ones.
func (e *Engine) HitTest(pt Point) Hit {
	s := e.store.Snapshot()
	g := e.geometry(s)
	for i := len(s.Elements) - 1; i >= 0; i-- {
		el := s.Elements[i]
		r := g.ElementRect(el)
		if !r.Contains(pt) {
			continue
		}
		grip := math.Min(g.HandlePx, r.W/3)
		switch {
		case pt.X <= r.X+grip:
			return Hit{ElementID: el.ID, Kind: DragResizeStart}
		case pt.X >= r.X+r.W-grip:
			return Hit{ElementID: el.ID, Kind: DragResizeEnd}
		default:
			return Hit{ElementID: el.ID, Kind: DragMove}
		}
	}
	return Hit{}
}

// PointerDown starts a drag on an element or a marquee on empty space.
func (e *Engine) PointerDown(pt Point, hit Hit) error {
	if e.state != Idle {
		return fmt.Errorf("pointer already down (%s)", e.state)
	}
	e.anchor, e.current = pt, pt

	if hit.ElementID == "" {
		e.state = Marquee
		return nil
	}

	s := e.store.Snapshot()
	if _, ok := s.Element(hit.ElementID); !ok {
		return fmt.Errorf("%w: %s", project.ErrNotFound, hit.ElementID)
	}
	if !s.IsSelected(hit.ElementID) {
		if err := e.store.Dispatch(project.SetSelection{IDs: []string{hit.ElementID}}); err != nil {
			return err
		}
		s = e.store.Snapshot()
	}

	e.kind = hit.Kind
	e.pressed = hit.ElementID
	if hit.Kind == DragMove {
		e.ids = s.SelectedIDs()
	} else {
		e.ids = []string{hit.ElementID}
	}
	e.origin = make(map[string]timeline.Element, len(e.ids))
	for _, id := range e.ids {
		el, _ := s.Element(id)
		e.origin[id] = el
	}
	e.state = Dragging
	return nil
}

// PointerMove updates the drag or the marquee rectangle.
func (e *Engine) PointerMove(pt Point) error {
	e.current = pt
	switch e.state {
	case Dragging:
		return e.drag(pt)
	case Marquee:
		if e.isClick(pt) {
			return nil
		}
		return e.store.Dispatch(project.SetSelection{IDs: e.marqueeHits(pt)})
	}
	return nil
}

// PointerUp finishes the gesture. A marquee smaller than the click threshold on both
// axes is a click on empty space: deselect all and move the playhead there.
func (e *Engine) PointerUp(pt Point) error {
	defer e.reset()
	e.current = pt
	switch e.state {
	case Dragging:
		return e.drag(pt)
	case Marquee:
		if e.isClick(pt) {
			g := e.geometry(e.store.Snapshot())
			return e.store.Dispatch(
				project.SetSelection{},
				project.SetPlayhead{Time: g.TimeAt(e.anchor.X)},
			)
		}
		return e.store.Dispatch(project.SetSelection{IDs: e.marqueeHits(pt)})
	}
	return nil
}

// Cancel abandons the gesture, restoring dragged elements.
func (e *Engine) Cancel() error {
	defer e.reset()
	if e.state != Dragging {
		return nil
	}
	return e.store.Dispatch(e.restore()...)
}

func (e *Engine) restore() []project.Intent {
	intents := make([]project.Intent, 0, len(e.ids))
	for _, id := range e.ids {
		o := e.origin[id]
		start, dur, track := o.StartTime, o.Duration, o.TrackID
		intents = append(intents, project.UpdateElement{ID: id, Patch: project.Patch{StartTime: &start, Duration: &dur, TrackID: &track}})
	}
	return intents
}

func (e *Engine) reset() {
	e.state = Idle
	e.pressed = ""
	e.ids = nil
	e.origin = nil
}

func (e *Engine) isClick(pt Point) bool {
	return math.Abs(pt.X-e.anchor.X) < e.cfg.ClickPx && math.Abs(pt.Y-e.anchor.Y) < e.cfg.ClickPx
}

func (e *Engine) marqueeHits(pt Point) []string {
	s := e.store.Snapshot()
	g := e.geometry(s)
	box := RectBetween(e.anchor, pt)
	var ids []string
	for _, el := range s.Elements {
		if box.Intersects(g.ElementRect(el)) {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

func (e *Engine) drag(pt Point) error {
	// a press without real movement must not snap anything
	if e.isClick(pt) {
		return e.store.Dispatch(e.restore()...)
	}
	s := e.store.Snapshot()
	g := e.geometry(s)
	dt := (pt.X - e.anchor.X) / g.Zoom

	switch e.kind {
	case DragMove:
		return e.store.Dispatch(e.moveIntent(s, g, dt, g.RowDelta(pt.Y-e.anchor.Y)))
	case DragResizeStart:
		o := e.origin[e.pressed]
		end := timeline.EndTime(o)
		start := math.Max(0, math.Min(o.StartTime+dt, end-timeline.MinDuration))
		dur := end - start
		return e.store.Dispatch(project.UpdateElement{ID: e.pressed, Patch: project.Patch{StartTime: &start, Duration: &dur}})
	case DragResizeEnd:
		o := e.origin[e.pressed]
		dur := timeline.ClampDuration(o.Duration + dt)
		return e.store.Dispatch(project.UpdateElement{ID: e.pressed, Patch: project.Patch{Duration: &dur}})
	}
	return nil
}

// moveIntent translates the whole selection by the same delta. The pressed element
// drives snapping; the delta is limited so no element leaves time 0 or track 0, which
// keeps relative offsets intact.
func (e *Engine) moveIntent(s project.State, g Geometry, dt float64, dTrack int) project.Intent {
	lead := e.origin[e.pressed]
	dragged := make(map[string]bool, len(e.ids))
	minStart, minTrack := math.Inf(1), math.MaxInt
	for _, id := range e.ids {
		dragged[id] = true
		minStart = math.Min(minStart, e.origin[id].StartTime)
		minTrack = min(minTrack, e.origin[id].TrackID)
	}

	proposed := lead.StartTime + dt
	if snapped, ok := Snap(proposed, lead.Duration, SnapPoints(s.Elements, dragged, s.Playhead), g.SnapThreshold()); ok {
		proposed = snapped
	}
	delta := math.Max(proposed-lead.StartTime, -minStart)
	dTrack = max(dTrack, -minTrack)

	moves := make([]project.Move, 0, len(e.ids))
	for _, id := range e.ids {
		o := e.origin[id]
		moves = append(moves, project.Move{ID: id, StartTime: o.StartTime + delta, TrackID: o.TrackID + dTrack})
	}
	return project.MoveElements{Moves: moves}
}
