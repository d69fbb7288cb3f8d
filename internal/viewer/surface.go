package viewer

import (
	"image"
	"image/draw"
	"math"
	"sync"

	"pdf-viewer/internal/domain"
)

// Point is a position in surface pixels or client CSS pixels, depending on context.
type Point struct {
	X, Y float64
}

// Rect is a client-space rectangle in CSS pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

// Affordance is the visual hint applied to an annotation surface for the active tool.
type Affordance string

const (
	AffordanceNone   Affordance = "no-drawing"
	AffordancePen    Affordance = "pen-mode"
	AffordanceEraser Affordance = "eraser-mode"
)

func affordanceFor(mode domain.ToolMode) Affordance {
	switch mode {
	case domain.ToolPen:
		return AffordancePen
	case domain.ToolEraser:
		return AffordanceEraser
	}
	return AffordanceNone
}

// Surface is a raster drawing surface displayed at a CSS size. Its pixel
// size is the CSS size multiplied by the device pixel ratio.
type Surface struct {
	mu         sync.Mutex
	pixels     *image.RGBA
	css        domain.Size
	affordance Affordance
	placement  func() Rect
}

func newSurface(width, height int, css domain.Size, placement func() Rect) *Surface {
	return &Surface{
		pixels:     image.NewRGBA(image.Rect(0, 0, width, height)),
		css:        css,
		affordance: AffordanceNone,
		placement:  placement,
	}
}

// PixelSize returns the bitmap dimensions.
func (s *Surface) PixelSize() (int, int) {
	b := s.pixels.Bounds()
	return b.Dx(), b.Dy()
}

// CSSSize returns the display dimensions.
func (s *Surface) CSSSize() domain.Size {
	return s.css
}

// BoundingRect returns where the surface is currently displayed in client coordinates.
func (s *Surface) BoundingRect() Rect {
	if s.placement == nil {
		return Rect{Width: s.css.Width, Height: s.css.Height}
	}
	return s.placement()
}

// ClientToLocal converts client CSS coordinates to surface pixel coordinates
// using the displayed rect and the pixel-to-CSS ratio.
func (s *Surface) ClientToLocal(clientX, clientY float64) Point {
	rect := s.BoundingRect()
	w, h := s.PixelSize()
	rx, ry := 1.0, 1.0
	if rect.Width > 0 {
		rx = float64(w) / rect.Width
	}
	if rect.Height > 0 {
		ry = float64(h) / rect.Height
	}
	return Point{X: (clientX - rect.Left) * rx, Y: (clientY - rect.Top) * ry}
}

// Affordance returns the tool hint currently applied.
func (s *Surface) Affordance() Affordance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.affordance
}

func (s *Surface) setAffordance(a Affordance) {
	s.mu.Lock()
	s.affordance = a
	s.mu.Unlock()
}

// Snapshot returns a copy of the bitmap.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.pixels.Bounds())
	copy(out.Pix, s.pixels.Pix)
	return out
}

// withPixels runs fn with exclusive access to the bitmap.
func (s *Surface) withPixels(fn func(*image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.pixels)
}

// PagePair holds one page's content surface and the annotation surface stacked on it.
type PagePair struct {
	Index      int
	Top        float64
	Size       domain.Size
	Content    *Surface
	Annotation *Surface
	// Err is the RenderError of a page that failed to rasterize; its content
	// surface stays blank.
	Err error
}

func newPagePair(index int, css domain.Size, dpr, top float64, placement func(*PagePair) Rect) *PagePair {
	w, h := pixelDims(css, dpr)
	p := &PagePair{Index: index, Top: top, Size: css}
	place := func() Rect {
		if placement == nil {
			return Rect{Top: p.Top, Width: css.Width, Height: css.Height}
		}
		return placement(p)
	}
	p.Content = newSurface(w, h, css, place)
	p.Annotation = newSurface(w, h, css, place)
	return p
}

// Bottom returns the document-space y of the page's lower edge.
func (p *PagePair) Bottom() float64 {
	return p.Top + p.Size.Height
}

// Contains reports whether the document-space y lies within the page extent.
func (p *PagePair) Contains(y float64) bool {
	return y >= p.Top && y <= p.Bottom()
}

// Composite flattens the annotation surface over the content surface.
func (p *PagePair) Composite() *image.RGBA {
	out := p.Content.Snapshot()
	ann := p.Annotation.Snapshot()
	draw.Draw(out, out.Bounds(), ann, image.Point{}, draw.Over)
	return out
}

// pixelDims sizes a raster for a CSS size, truncating like a canvas width attribute.
func pixelDims(css domain.Size, dpr float64) (int, int) {
	if dpr <= 0 {
		dpr = 1
	}
	w := int(math.Floor(css.Width * dpr))
	h := int(math.Floor(css.Height * dpr))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
