package viewer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"pdf-viewer/internal/domain"

	"golang.org/x/image/vector"
)

// CompositeOp is the pixel blending rule used for a stroke.
type CompositeOp int

const (
	// SourceOver paints on top of existing pixels.
	SourceOver CompositeOp = iota
	// DestinationOut erases existing pixels by the stroke's coverage.
	DestinationOut
)

func (op CompositeOp) String() string {
	if op == DestinationOut {
		return "destination-out"
	}
	return "source-over"
}

// Brush describes how a tool strokes.
type Brush struct {
	Op    CompositeOp
	Color color.RGBA
	Width float64
}

var (
	PenBrush    = Brush{Op: SourceOver, Color: color.RGBA{R: 0xff, G: 0xeb, B: 0x3b, A: 0xff}, Width: 3}
	EraserBrush = Brush{Op: DestinationOut, Width: 20}
)

// BrushFor returns the brush of a drawing tool; ok is false for ToolNone.
func BrushFor(mode domain.ToolMode) (Brush, bool) {
	switch mode {
	case domain.ToolPen:
		return PenBrush, true
	case domain.ToolEraser:
		return EraserBrush, true
	}
	return Brush{}, false
}

// capSegments is the polygon resolution of round caps and joins.
const capSegments = 24

// StrokeSegment draws a round-capped line from a to b into dst.
func StrokeSegment(dst *image.RGBA, a, b Point, brush Brush) {
	hw := brush.Width / 2
	if hw <= 0 {
		return
	}

	// The raster box always contains the whole shape; only its overlap with
	// dst is composited.
	box := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-hw))-1,
		int(math.Floor(math.Min(a.Y, b.Y)-hw))-1,
		int(math.Ceil(math.Max(a.X, b.X)+hw))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+hw))+1,
	)
	clip := box.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	a = Point{X: a.X - ox, Y: a.Y - oy}
	b = Point{X: b.X - ox, Y: b.Y - oy}

	r := vector.NewRasterizer(box.Dx(), box.Dy())
	addSegment(r, a, b, hw)
	addDisc(r, a, hw)
	addDisc(r, b, hw)

	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	r.DrawOp = draw.Src
	r.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	mp := clip.Min.Sub(box.Min)
	switch brush.Op {
	case DestinationOut:
		eraseMasked(dst, clip, mask, mp)
	default:
		draw.DrawMask(dst, clip, image.NewUniform(brush.Color), image.Point{}, mask, mp, draw.Over)
	}
}

// All polygons are wound the same way so overlapping coverage adds up
// instead of cancelling.
func addSegment(r *vector.Rasterizer, a, b Point, hw float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ClosePath()
}

func addDisc(r *vector.Rasterizer, c Point, radius float64) {
	r.MoveTo(float32(c.X+radius), float32(c.Y))
	for i := 1; i < capSegments; i++ {
		theta := -2 * math.Pi * float64(i) / capSegments
		r.LineTo(float32(c.X+radius*math.Cos(theta)), float32(c.Y+radius*math.Sin(theta)))
	}
	r.ClosePath()
}

// eraseMasked scales every premultiplied channel by (1 - coverage).
func eraseMasked(dst *image.RGBA, clip image.Rectangle, mask *image.Alpha, mp image.Point) {
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			m := uint32(mask.AlphaAt(mp.X+x-clip.Min.X, mp.Y+y-clip.Min.Y).A)
			if m == 0 {
				continue
			}
			keep := 0xff - m
			i := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[i+c] = uint8(uint32(dst.Pix[i+c]) * keep / 0xff)
			}
		}
	}
}
