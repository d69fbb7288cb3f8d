package viewer

import (
	"image"
	"sync"

	"pdf-viewer/internal/domain"
)

// EventType identifies a pointer or touch event on an annotation surface.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	PointerLeave
	TouchStart
	TouchMove
	TouchEnd
	TouchCancel
)

// PointerEvent carries client coordinates; touch events carry their touch points.
type PointerEvent struct {
	Type    EventType
	ClientX float64
	ClientY float64
	Touches []Point
}

func (ev PointerEvent) clientPosition() (float64, float64) {
	if len(ev.Touches) > 0 {
		return ev.Touches[0].X, ev.Touches[0].Y
	}
	return ev.ClientX, ev.ClientY
}

// ScrollLock suppresses page scrolling and scroll-driven page tracking while a stroke is drawn.
type ScrollLock interface {
	Lock()
	Unlock()
}

type strokeSession struct {
	surface *Surface
	brush   Brush
	last    Point
}

// AnnotationEngine captures strokes on annotation surfaces. At most one
// stroke session exists at a time.
type AnnotationEngine struct {
	mu       sync.Mutex
	state    *State
	lock     ScrollLock
	logger   domain.Logger
	surfaces []*Surface
	session  *strokeSession
}

// NewAnnotationEngine creates a new annotation engine
func NewAnnotationEngine(state *State, lock ScrollLock, logger domain.Logger) *AnnotationEngine {
	return &AnnotationEngine{
		state:  state,
		lock:   lock,
		logger: logger,
	}
}

// Attach replaces the set of annotation surfaces the engine draws on.
func (e *AnnotationEngine) Attach(pages []*PagePair) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		e.endSessionLocked()
	}
	e.surfaces = make([]*Surface, 0, len(pages))
	for _, p := range pages {
		e.surfaces = append(e.surfaces, p.Annotation)
	}
	e.applyAffordanceLocked(e.state.Tool())
}

// SelectTool toggles a tool and updates the affordance of every surface.
func (e *AnnotationEngine) SelectTool(mode domain.ToolMode) domain.ToolMode {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.state.SelectTool(mode)
	e.applyAffordanceLocked(active)
	e.logger.Debug("Tool selected", "requested", mode, "active", active)
	return active
}

// Drawing reports whether a stroke session is active.
func (e *AnnotationEngine) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Handle feeds one event on surface s into the state machine. It returns
// true when the event was consumed and its default action should be prevented.
func (e *AnnotationEngine) Handle(s *Surface, ev PointerEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case PointerDown, TouchStart:
		return e.begin(s, ev)
	case PointerMove, TouchMove:
		return e.extend(s, ev)
	case PointerUp, PointerLeave, TouchEnd, TouchCancel:
		if e.session == nil || e.session.surface != s {
			return false
		}
		e.endSessionLocked()
		return true
	}
	return false
}

func (e *AnnotationEngine) begin(s *Surface, ev PointerEvent) bool {
	brush, ok := BrushFor(e.state.Tool())
	if !ok {
		return false
	}
	if e.session != nil {
		e.endSessionLocked()
	}
	x, y := ev.clientPosition()
	e.session = &strokeSession{
		surface: s,
		brush:   brush,
		last:    s.ClientToLocal(x, y),
	}
	e.lock.Lock()
	return true
}

// extend strokes from the last point to the event position immediately.
func (e *AnnotationEngine) extend(s *Surface, ev PointerEvent) bool {
	sess := e.session
	if sess == nil || sess.surface != s {
		return false
	}
	x, y := ev.clientPosition()
	cur := s.ClientToLocal(x, y)
	s.withPixels(func(px *image.RGBA) {
		StrokeSegment(px, sess.last, cur, sess.brush)
	})
	sess.last = cur
	return true
}

func (e *AnnotationEngine) endSessionLocked() {
	e.session = nil
	e.lock.Unlock()
}

func (e *AnnotationEngine) applyAffordanceLocked(mode domain.ToolMode) {
	a := affordanceFor(mode)
	for _, s := range e.surfaces {
		s.setAffordance(a)
	}
}
