package viewer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
	"sync"
	"time"

	"pdf-viewer/internal/domain"
)

// Mock logger used by viewer package tests.
type mockLogger struct{}

func newMockLogger() domain.Logger { return &mockLogger{} }

func (l *mockLogger) Info(msg string, fields ...interface{})             {}
func (l *mockLogger) Error(msg string, err error, fields ...interface{}) {}
func (l *mockLogger) Debug(msg string, fields ...interface{})            {}
func (l *mockLogger) Warn(msg string, fields ...interface{})             {}

var pageInk = color.RGBA{R: 10, G: 20, B: 30, A: 255}

// mockEngine serves pages of fixed unscaled sizes.
type mockEngine struct {
	mu        sync.Mutex
	sizes     []domain.Size
	failPages map[int]bool
	closed    bool
	renders   []float64
	// onRender runs before a page is drawn.
	onRender func(page int)
}

func newMockEngine(n int) *mockEngine {
	sizes := make([]domain.Size, n)
	for i := range sizes {
		sizes[i] = domain.Size{Width: 612, Height: 792}
	}
	return &mockEngine{sizes: sizes, failPages: map[int]bool{}}
}

func (e *mockEngine) NumPages() int { return len(e.sizes) }

func (e *mockEngine) Page(ctx context.Context, index int) (domain.PageHandle, error) {
	if err := domain.ValidatePageNumber(index, len(e.sizes)); err != nil {
		return nil, err
	}
	return &mockPage{engine: e, index: index, size: e.sizes[index-1]}, nil
}

func (e *mockEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

func (e *mockEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *mockEngine) renderScales() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.renders...)
}

type mockPage struct {
	engine *mockEngine
	index  int
	size   domain.Size
}

func (p *mockPage) Viewport(scale float64) domain.Size {
	return domain.Size{Width: p.size.Width * scale, Height: p.size.Height * scale}
}

func (p *mockPage) Render(ctx context.Context, dst *image.RGBA, scale float64) error {
	p.engine.mu.Lock()
	p.engine.renders = append(p.engine.renders, scale)
	fail := p.engine.failPages[p.index]
	hook := p.engine.onRender
	p.engine.mu.Unlock()

	if hook != nil {
		hook(p.index)
	}

	// Partially drawn before failing, so callers must clear the surface.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(pageInk), image.Point{}, draw.Src)
	if fail {
		return errors.New("corrupt page stream")
	}
	return nil
}

// mockOpener parses documents of the form "pages:N".
type mockOpener struct {
	mu      sync.Mutex
	engines []*mockEngine
	// onOpen runs for every engine before it is returned.
	onOpen func(e *mockEngine)
}

func (o *mockOpener) Open(data []byte) (domain.RenderEngine, error) {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "pages:") {
		return nil, domain.ErrInvalidFile
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "pages:"))
	if err != nil {
		return nil, domain.ErrInvalidFile
	}
	e := newMockEngine(n)
	o.mu.Lock()
	o.engines = append(o.engines, e)
	hook := o.onOpen
	o.mu.Unlock()
	if hook != nil {
		hook(e)
	}
	return e, nil
}

func (o *mockOpener) last() *mockEngine {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.engines) == 0 {
		return nil
	}
	return o.engines[len(o.engines)-1]
}

// mockContainer is a scroll container with a fixed client area.
type mockContainer struct {
	mu             sync.Mutex
	scrollTop      float64
	width, height  float64
	origin         Point
	overflowHidden bool
	scrolls        []float64
}

func newMockContainer(width, height float64) *mockContainer {
	return &mockContainer{width: width, height: height}
}

func (c *mockContainer) ScrollTop() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollTop
}

func (c *mockContainer) ClientWidth() float64  { return c.width }
func (c *mockContainer) ClientHeight() float64 { return c.height }
func (c *mockContainer) ClientOrigin() Point   { return c.origin }

func (c *mockContainer) ScrollTo(y float64, smooth bool) {
	c.mu.Lock()
	c.scrollTop = y
	c.scrolls = append(c.scrolls, y)
	c.mu.Unlock()
}

func (c *mockContainer) SetOverflowHidden(hidden bool) {
	c.mu.Lock()
	c.overflowHidden = hidden
	c.mu.Unlock()
}

func (c *mockContainer) setScrollTop(y float64) {
	c.mu.Lock()
	c.scrollTop = y
	c.mu.Unlock()
}

func (c *mockContainer) hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overflowHidden
}

// manualClock collects scheduled tasks so tests decide when they fire.
type manualClock struct {
	mu    sync.Mutex
	tasks []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, f: f}
	c.tasks = append(c.tasks, t)
	return t
}

// fire runs every task that was not stopped and returns how many ran.
func (c *manualClock) fire() int {
	c.mu.Lock()
	var due []func()
	for _, t := range c.tasks {
		if !t.stopped {
			t.stopped = true
			due = append(due, t.f)
		}
	}
	c.tasks = nil
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
	return len(due)
}

func (c *manualClock) scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// countingLock records scroll lock transitions.
type countingLock struct {
	locks, unlocks int
}

func (l *countingLock) Lock()   { l.locks++ }
func (l *countingLock) Unlock() { l.unlocks++ }

func openMockDocument(n int) (*Document, *mockEngine) {
	e := newMockEngine(n)
	return newDocument("doc-1", e), e
}
