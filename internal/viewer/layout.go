package viewer

import (
	"context"
	"image"
	"sync"

	"pdf-viewer/internal/domain"
	apperrors "pdf-viewer/pkg/errors"
)

// ScrollContainer is the scrollable element that stacks the pages.
type ScrollContainer interface {
	ScrollTop() float64
	ClientWidth() float64
	ClientHeight() float64
	// ClientOrigin is the container's top-left corner in client coordinates.
	ClientOrigin() Point
	ScrollTo(y float64, smooth bool)
	SetOverflowHidden(hidden bool)
}

// LayoutOptions configures page sizing and stacking.
type LayoutOptions struct {
	DevicePixelRatio float64
	PageGap          float64
}

// placeholderSize is used for pages whose handle cannot be obtained.
var placeholderSize = domain.Size{Width: ReferencePageWidth, Height: 792}

// LayoutManager builds the page surface pairs for a document and tracks
// which page is current as the container scrolls.
type LayoutManager struct {
	container    ScrollContainer
	state        *State
	opts         LayoutOptions
	logger       domain.Logger
	onPageChange func(page int)

	mu         sync.Mutex
	generation uint64
	pages      []*PagePair
	scale      float64
	isCurrent  func(*Document) bool
}

// NewLayoutManager creates a new layout manager
func NewLayoutManager(container ScrollContainer, state *State, opts LayoutOptions, logger domain.Logger) *LayoutManager {
	if opts.DevicePixelRatio <= 0 {
		opts.DevicePixelRatio = 1
	}
	return &LayoutManager{
		container: container,
		state:     state,
		opts:      opts,
		logger:    logger,
	}
}

// OnPageChange registers a callback run whenever the current page changes.
func (m *LayoutManager) OnPageChange(fn func(page int)) {
	m.mu.Lock()
	m.onPageChange = fn
	m.mu.Unlock()
}

// GuardDocument registers a check run before a finished layout is
// displayed; layouts of documents it rejects are discarded.
func (m *LayoutManager) GuardDocument(isCurrent func(*Document) bool) {
	m.mu.Lock()
	m.isCurrent = isCurrent
	m.mu.Unlock()
}

// Layout rasterizes every page of doc at scale, one page at a time in page
// order, and then replaces the displayed pages. A pass overtaken by a newer
// Layout or Invalidate call is discarded with domain.ErrSuperseded.
func (m *LayoutManager) Layout(ctx context.Context, doc *Document, scale float64) ([]*PagePair, error) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	n := doc.PageCount()
	dpr := m.opts.DevicePixelRatio
	pages := make([]*PagePair, 0, n)
	top := 0.0
	failed := 0

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pair, err := m.buildPage(ctx, doc, i, scale, dpr, top)
		if err != nil {
			failed++
			pair.Err = apperrors.NewRenderError(i, err)
			m.logger.Warn("Page render failed; showing placeholder", "document_id", doc.ID, "page", i, "error", err)
		}
		pages = append(pages, pair)
		top = pair.Bottom() + m.opts.PageGap
	}

	m.mu.Lock()
	if gen != m.generation || (m.isCurrent != nil && !m.isCurrent(doc)) {
		m.mu.Unlock()
		m.logger.Debug("Discarding superseded layout", "document_id", doc.ID, "scale", scale)
		return nil, domain.ErrSuperseded
	}
	m.pages = pages
	m.scale = scale
	m.mu.Unlock()

	m.logger.Info("Layout complete", "document_id", doc.ID, "pages", n, "failed", failed, "scale", scale)
	return pages, nil
}

func (m *LayoutManager) buildPage(ctx context.Context, doc *Document, index int, scale, dpr, top float64) (*PagePair, error) {
	page, err := doc.Page(ctx, index)
	if err != nil {
		css := domain.Size{Width: placeholderSize.Width * scale, Height: placeholderSize.Height * scale}
		return newPagePair(index, css, dpr, top, m.placement), err
	}
	pair := newPagePair(index, page.Viewport(scale), dpr, top, m.placement)
	pair.Content.withPixels(func(px *image.RGBA) {
		err = page.Render(ctx, px, scale*dpr)
		if err != nil {
			clear(px.Pix)
		}
	})
	return pair, err
}

// Invalidate makes any in-flight Layout discard its result.
func (m *LayoutManager) Invalidate() {
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
}

// Pages returns the displayed page pairs in page order.
func (m *LayoutManager) Pages() []*PagePair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages
}

// Page returns the displayed pair for a 1-based index.
func (m *LayoutManager) Page(index int) (*PagePair, bool) {
	pages := m.Pages()
	if index < 1 || index > len(pages) {
		return nil, false
	}
	return pages[index-1], true
}

// Scale returns the scale of the displayed layout, or 0 before the first layout.
func (m *LayoutManager) Scale() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scale
}

// OnScroll updates the current page from the viewport midpoint. It does
// nothing while the scroll lock is held.
func (m *LayoutManager) OnScroll() {
	if m.state.ScrollLocked() {
		return
	}
	mid := m.container.ScrollTop() + m.container.ClientHeight()/2
	page := pageAt(m.Pages(), mid)
	if page == 0 || page == m.state.CurrentPage() {
		return
	}
	m.setCurrent(page)
}

// ScrollToPage smooth-scrolls page n to the middle of the viewport and makes
// it current without waiting for the scroll to finish. Out-of-range pages are
// ignored and false is returned.
func (m *LayoutManager) ScrollToPage(n int) bool {
	p, ok := m.Page(n)
	if !ok {
		return false
	}
	target := p.Top + p.Size.Height/2 - m.container.ClientHeight()/2
	if target < 0 {
		target = 0
	}
	m.container.ScrollTo(target, true)
	m.setCurrent(n)
	return true
}

func (m *LayoutManager) setCurrent(page int) {
	m.state.SetCurrentPage(page)
	m.mu.Lock()
	fn := m.onPageChange
	m.mu.Unlock()
	if fn != nil {
		fn(page)
	}
}

// placement computes where a page is displayed: horizontally centred in the
// container and offset by the scroll position.
func (m *LayoutManager) placement(p *PagePair) Rect {
	origin := m.container.ClientOrigin()
	left := origin.X
	if cw := m.container.ClientWidth(); cw > p.Size.Width {
		left += (cw - p.Size.Width) / 2
	}
	return Rect{
		Left:   left,
		Top:    origin.Y + p.Top - m.container.ScrollTop(),
		Width:  p.Size.Width,
		Height: p.Size.Height,
	}
}

// pageAt returns the 1-based index of the first page containing the
// document-space y, or 0 when y falls between or outside pages.
func pageAt(pages []*PagePair, y float64) int {
	for _, p := range pages {
		if p.Contains(y) {
			return p.Index
		}
		if p.Top > y {
			break
		}
	}
	return 0
}
