// Package viewer implements a multi-page document viewer with a freehand
// annotation layer: every page is rasterized onto a content surface with a
// same-sized annotation surface stacked on top of it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"pdf-viewer/internal/domain"
	apperrors "pdf-viewer/pkg/errors"
)

const (
	msgInvalidFileID = "Invalid File ID"
	msgLoadFailed    = "Failed to load PDF"
	msgLoading       = "Loading..."
)

// StatusDisplay shows the page indicator, load progress and loader messages.
type StatusDisplay interface {
	SetPageInfo(text string)
	SetProgress(text string)
	SetLoaderMessage(text string)
	HideLoader()
}

// Options configures the controller.
type Options struct {
	ViewportWidth    float64
	ResizeDebounce   time.Duration
	RescaleThreshold float64
	Layout           LayoutOptions
	// AfterFunc schedules debounced work; nil uses time.AfterFunc.
	AfterFunc AfterFunc
}

// Controller wires navigation, tool selection, scrolling and resizing to the
// loader, layout manager and annotation engine.
type Controller struct {
	loader    *DocumentLoader
	layout    *LayoutManager
	engine    *AnnotationEngine
	state     *State
	container ScrollContainer
	status    StatusDisplay
	debouncer *Debouncer
	logger    domain.Logger
	opts      Options

	mu       sync.Mutex
	width    float64
	attachMu sync.Mutex
}

// NewController creates a viewer controller
func NewController(
	loader *DocumentLoader,
	container ScrollContainer,
	status StatusDisplay,
	opts Options,
	logger domain.Logger,
) *Controller {
	state := NewState()
	layout := NewLayoutManager(container, state, opts.Layout, logger)
	engine := NewAnnotationEngine(state, &scrollGuard{state: state, container: container}, logger)

	c := &Controller{
		loader:    loader,
		layout:    layout,
		engine:    engine,
		state:     state,
		container: container,
		status:    status,
		debouncer: NewDebouncer(opts.ResizeDebounce, opts.AfterFunc),
		logger:    logger,
		opts:      opts,
		width:     opts.ViewportWidth,
	}

	layout.GuardDocument(loader.IsCurrent)
	layout.OnPageChange(func(int) { c.updatePageInfo() })
	loader.OnProgress(func(p domain.LoadProgress) {
		if pct, ok := p.Percent(); ok {
			status.SetProgress(fmt.Sprintf("%d%%", pct))
		}
	})
	return c
}

// Open loads a document and lays out all of its pages at the scale for the
// current viewport width. Errors are also reported through the status display.
func (c *Controller) Open(ctx context.Context, documentID string) error {
	c.layout.Invalidate()
	c.status.SetLoaderMessage(msgLoading)

	doc, err := c.loader.Load(ctx, documentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSuperseded):
		case apperrors.IsInputError(err):
			c.status.SetLoaderMessage(msgInvalidFileID)
		default:
			c.status.SetLoaderMessage(msgLoadFailed)
		}
		return err
	}

	c.state.Reset()
	scale := CalculateScale(c.viewportWidth())
	pages, err := c.layout.Layout(ctx, doc, scale)
	if err != nil {
		if !errors.Is(err, domain.ErrSuperseded) {
			c.status.SetLoaderMessage(msgLoadFailed)
			return err
		}
		// A re-layout of the same document won; it updates the display.
		if c.loader.IsCurrent(doc) {
			return nil
		}
		return err
	}

	c.attach(pages)
	return nil
}

// Next moves to the following page if there is one.
func (c *Controller) Next() {
	if cur := c.state.CurrentPage(); cur < c.pageCount() {
		c.layout.ScrollToPage(cur + 1)
	}
}

// Prev moves to the preceding page if there is one.
func (c *Controller) Prev() {
	if cur := c.state.CurrentPage(); cur > 1 {
		c.layout.ScrollToPage(cur - 1)
	}
}

// JumpTo moves to page n. Out-of-range pages leave the current page unchanged
// and return an input error.
func (c *Controller) JumpTo(n int) error {
	if !c.layout.ScrollToPage(n) {
		return apperrors.NewValidationError("page out of range", fmt.Sprintf("page %d of %d", n, c.pageCount()))
	}
	return nil
}

// SelectTool toggles a drawing tool and returns the active mode.
func (c *Controller) SelectTool(mode domain.ToolMode) domain.ToolMode {
	return c.engine.SelectTool(mode)
}

// HandlePointer routes an event to the annotation surface of a page.
func (c *Controller) HandlePointer(page int, ev PointerEvent) bool {
	p, ok := c.layout.Page(page)
	if !ok {
		return false
	}
	return c.engine.Handle(p.Annotation, ev)
}

// OnScroll updates the current page after the container scrolled.
func (c *Controller) OnScroll() {
	c.layout.OnScroll()
}

// OnResize records a new viewport width. Re-layout happens once resizing
// has been quiet for the debounce delay, using the last reported width.
func (c *Controller) OnResize(width float64) {
	c.mu.Lock()
	c.width = width
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		c.relayout(context.Background(), width)
	})
}

// relayout re-renders all pages when the width maps to a scale that differs
// from the displayed one by more than the threshold.
func (c *Controller) relayout(ctx context.Context, width float64) {
	doc := c.loader.Current()
	if doc == nil {
		return
	}
	current := c.layout.Scale()
	scale := CalculateScale(width)
	if math.Abs(scale-current) <= c.opts.RescaleThreshold {
		c.logger.Debug("Resize below rescale threshold", "width", width, "scale", scale, "current", current)
		return
	}

	c.logger.Info("Rescaling pages", "width", width, "from", current, "to", scale)
	pages, err := c.layout.Layout(ctx, doc, scale)
	if err != nil {
		if !errors.Is(err, domain.ErrSuperseded) {
			c.logger.Error("Re-layout failed", err, "document_id", doc.ID)
		}
		return
	}
	c.attach(pages)
}

// attach hands the pages to the annotation engine and shows them as ready,
// unless a newer layout has already replaced them.
func (c *Controller) attach(pages []*PagePair) bool {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()

	displayed := c.layout.Pages()
	if len(displayed) != len(pages) || (len(pages) > 0 && displayed[0] != pages[0]) {
		return false
	}
	c.engine.Attach(pages)
	c.status.HideLoader()
	c.updatePageInfo()
	return true
}

// Pages returns the displayed page pairs.
func (c *Controller) Pages() []*PagePair {
	return c.layout.Pages()
}

// State returns the viewer state.
func (c *Controller) State() *State {
	return c.state
}

// Scale returns the scale of the displayed layout.
func (c *Controller) Scale() float64 {
	return c.layout.Scale()
}

// Drawing reports whether a stroke is in progress.
func (c *Controller) Drawing() bool {
	return c.engine.Drawing()
}

// Close cancels pending work and releases the loaded document.
func (c *Controller) Close() error {
	c.debouncer.Cancel()
	c.layout.Invalidate()
	return c.loader.Close()
}

func (c *Controller) viewportWidth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

func (c *Controller) pageCount() int {
	return len(c.layout.Pages())
}

func (c *Controller) updatePageInfo() {
	n := c.pageCount()
	if n == 0 {
		return
	}
	c.status.SetPageInfo(fmt.Sprintf("Page %d / %d", c.state.CurrentPage(), n))
}

// scrollGuard holds the scroll lock and hides page overflow during a stroke.
type scrollGuard struct {
	state     *State
	container ScrollContainer
}

func (g *scrollGuard) Lock() {
	g.state.SetScrollLock(true)
	g.container.SetOverflowHidden(true)
}

func (g *scrollGuard) Unlock() {
	g.state.SetScrollLock(false)
	g.container.SetOverflowHidden(false)
}

// TextStatus is a StatusDisplay that keeps the texts in memory.
type TextStatus struct {
	mu            sync.Mutex
	pageInfo      string
	progress      string
	loaderMessage string
	loaderVisible bool
}

func (s *TextStatus) SetPageInfo(text string) {
	s.mu.Lock()
	s.pageInfo = text
	s.mu.Unlock()
}

func (s *TextStatus) SetProgress(text string) {
	s.mu.Lock()
	s.progress = text
	s.mu.Unlock()
}

func (s *TextStatus) SetLoaderMessage(text string) {
	s.mu.Lock()
	s.loaderMessage = text
	s.loaderVisible = true
	s.mu.Unlock()
}

func (s *TextStatus) HideLoader() {
	s.mu.Lock()
	s.loaderVisible = false
	s.mu.Unlock()
}

func (s *TextStatus) PageInfo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageInfo
}

func (s *TextStatus) Progress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// LoaderMessage returns the loader text and whether the loader is shown.
func (s *TextStatus) LoaderMessage() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaderMessage, s.loaderVisible
}
