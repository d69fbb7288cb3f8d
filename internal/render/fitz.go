// Package render implements the page rasterization capability on top of MuPDF.
package render

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"pdf-viewer/internal/domain"

	"github.com/gen2brain/go-fitz"
	xdraw "golang.org/x/image/draw"
)

// pointsPerInch is the PDF user-space unit; scale 1 renders one point per pixel.
const pointsPerInch = 72.0

// FitzOpener opens documents with go-fitz.
type FitzOpener struct {
	logger domain.Logger
}

// NewFitzOpener creates a new opener
func NewFitzOpener(logger domain.Logger) *FitzOpener {
	return &FitzOpener{logger: logger}
}

// Open parses PDF bytes held in memory.
func (o *FitzOpener) Open(data []byte) (domain.RenderEngine, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidFile
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	o.logger.Debug("Document opened", "pages", doc.NumPage(), "bytes", len(data))
	return &FitzEngine{doc: doc, logger: o.logger}, nil
}

// FitzEngine is a RenderEngine backed by one MuPDF document.
type FitzEngine struct {
	doc    *fitz.Document
	logger domain.Logger
}

// NumPages returns the page count
func (e *FitzEngine) NumPages() int {
	return e.doc.NumPage()
}

// Page returns the handle for a 1-based page index.
func (e *FitzEngine) Page(ctx context.Context, index int) (domain.PageHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := domain.ValidatePageNumber(index, e.doc.NumPage()); err != nil {
		return nil, err
	}
	bound, err := e.doc.Bound(index - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read page bounds: %w", err)
	}
	return &fitzPage{
		engine: e,
		index:  index,
		size:   domain.Size{Width: float64(bound.Dx()), Height: float64(bound.Dy())},
	}, nil
}

// Close releases the MuPDF document
func (e *FitzEngine) Close() error {
	return e.doc.Close()
}

type fitzPage struct {
	engine *FitzEngine
	index  int
	size   domain.Size
}

func (p *fitzPage) Viewport(scale float64) domain.Size {
	return domain.Size{Width: p.size.Width * scale, Height: p.size.Height * scale}
}

func (p *fitzPage) Render(ctx context.Context, dst *image.RGBA, scale float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := p.engine.doc.ImageDPI(p.index-1, pointsPerInch*scale)
	if err != nil {
		return fmt.Errorf("failed to rasterize page %d: %w", p.index, err)
	}
	FitInto(dst, img)
	return nil
}

// FitInto copies src onto dst, resampling when the sizes differ by the
// rounding of fractional page dimensions.
func FitInto(dst *image.RGBA, src image.Image) {
	if src.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}
