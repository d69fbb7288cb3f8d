package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"pdf-viewer/internal/domain"
	"pdf-viewer/internal/viewer"
)

// Step is one scripted viewer interaction. Pointer coordinates are CSS
// pixels relative to the page's top-left corner.
type Step struct {
	Action string  `json:"action"`
	Tool   string  `json:"tool,omitempty"`
	Page   int     `json:"page,omitempty"`
	Type   string  `json:"type,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Width  float64 `json:"width,omitempty"`
}

// Script is the JSON document replayed against the viewer.
type Script struct {
	Steps []Step `json:"steps"`
}

func parseScript(r io.Reader) (*Script, error) {
	var s Script
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

var eventTypes = map[string]viewer.EventType{
	"down":        viewer.PointerDown,
	"move":        viewer.PointerMove,
	"up":          viewer.PointerUp,
	"leave":       viewer.PointerLeave,
	"touchstart":  viewer.TouchStart,
	"touchmove":   viewer.TouchMove,
	"touchend":    viewer.TouchEnd,
	"touchcancel": viewer.TouchCancel,
}

func (s Step) validate() error {
	switch s.Action {
	case "tool":
		if !domain.ToolMode(s.Tool).Valid() {
			return fmt.Errorf("unknown tool %q", s.Tool)
		}
	case "pointer":
		if _, ok := eventTypes[s.Type]; !ok {
			return fmt.Errorf("unknown pointer event %q", s.Type)
		}
	case "resize":
		if s.Width <= 0 {
			return fmt.Errorf("resize width must be positive")
		}
	case "jump", "scroll", "next", "prev", "settle":
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

// player applies script steps to a controller.
type player struct {
	controller *viewer.Controller
	container  *memContainer
	scheduler  *queuedScheduler
	logger     domain.Logger
}

func (p *player) run(steps []Step) error {
	for i, step := range steps {
		if err := p.apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}
	// Let a trailing resize take effect before export.
	p.scheduler.flush()
	return nil
}

func (p *player) apply(step Step) error {
	c := p.controller
	switch step.Action {
	case "tool":
		active := c.SelectTool(domain.ToolMode(step.Tool))
		p.logger.Debug("Tool toggled", "requested", step.Tool, "active", active)
	case "pointer":
		page, ok := pageByIndex(c.Pages(), step.Page)
		if !ok {
			return fmt.Errorf("no page %d", step.Page)
		}
		rect := page.Annotation.BoundingRect()
		x, y := rect.Left+step.X, rect.Top+step.Y
		ev := viewer.PointerEvent{Type: eventTypes[step.Type], ClientX: x, ClientY: y}
		if ev.Type >= viewer.TouchStart {
			ev.Touches = []viewer.Point{{X: x, Y: y}}
		}
		c.HandlePointer(step.Page, ev)
	case "scroll":
		p.container.ScrollTo(step.Top, false)
		c.OnScroll()
	case "jump":
		return c.JumpTo(step.Page)
	case "next":
		c.Next()
	case "prev":
		c.Prev()
	case "resize":
		p.container.setWidth(step.Width)
		c.OnResize(step.Width)
	case "settle":
		p.scheduler.flush()
	}
	return nil
}

func pageByIndex(pages []*viewer.PagePair, index int) (*viewer.PagePair, bool) {
	if index < 1 || index > len(pages) {
		return nil, false
	}
	return pages[index-1], true
}

// queuedScheduler holds debounced work until the script settles.
type queuedScheduler struct {
	mu    sync.Mutex
	tasks []*queuedTask
}

type queuedTask struct {
	s       *queuedScheduler
	f       func()
	stopped bool
}

func (t *queuedTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *queuedScheduler) AfterFunc(_ time.Duration, f func()) viewer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &queuedTask{s: s, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *queuedScheduler) flush() {
	s.mu.Lock()
	var due []func()
	for _, t := range s.tasks {
		if !t.stopped {
			t.stopped = true
			due = append(due, t.f)
		}
	}
	s.tasks = nil
	s.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// memContainer is an in-memory scroll container.
type memContainer struct {
	mu             sync.Mutex
	scrollTop      float64
	width, height  float64
	overflowHidden bool
}

func newMemContainer(width, height float64) *memContainer {
	return &memContainer{width: width, height: height}
}

func (c *memContainer) ScrollTop() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollTop
}

func (c *memContainer) ClientWidth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

func (c *memContainer) ClientHeight() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

func (c *memContainer) ClientOrigin() viewer.Point {
	return viewer.Point{}
}

func (c *memContainer) ScrollTo(y float64, _ bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Scrolling is frozen while a stroke hides overflow.
	if c.overflowHidden {
		return
	}
	if y < 0 {
		y = 0
	}
	c.scrollTop = y
}

func (c *memContainer) SetOverflowHidden(hidden bool) {
	c.mu.Lock()
	c.overflowHidden = hidden
	c.mu.Unlock()
}

func (c *memContainer) setWidth(w float64) {
	c.mu.Lock()
	c.width = w
	c.mu.Unlock()
}
