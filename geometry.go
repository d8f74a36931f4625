package stage

import (
	"image"
	"math"

	"github.com/gogpu/gg"
)

// Rect is an axis-aligned rectangle in floating point coordinates.
// MaxX/MaxY are exclusive. A rectangle with MinX >= MaxX or MinY >= MaxY
// is empty.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyRect returns a rectangle that acts as the identity for Union.
func EmptyRect() Rect {
	return Rect{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// RectXYWH builds a rectangle from origin and size.
func RectXYWH(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return !(r.MinX < r.MaxX && r.MinY < r.MaxY)
}

// IsFinite reports whether every coordinate is a finite number.
func (r Rect) IsFinite() bool {
	for _, v := range [4]float64{r.MinX, r.MinY, r.MaxX, r.MaxY} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Width returns MaxX - MinX.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns MaxY - MinY.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Union returns the smallest rectangle containing r and o.
// Empty rectangles are ignored.
func (r Rect) Union(o Rect) Rect {
	if o.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return o
	}
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Intersect returns the overlap of r and o.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		MinX: math.Max(r.MinX, o.MinX),
		MinY: math.Max(r.MinY, o.MinY),
		MaxX: math.Min(r.MaxX, o.MaxX),
		MaxY: math.Min(r.MaxY, o.MaxY),
	}
}

// Transform returns the bounding box of r mapped through m.
func (r Rect) Transform(m gg.Matrix) Rect {
	if r.IsEmpty() {
		return r
	}
	if m.IsIdentity() {
		return r
	}
	out := EmptyRect()
	for _, p := range [4]gg.Point{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	} {
		q := m.TransformPoint(p)
		out.MinX = math.Min(out.MinX, q.X)
		out.MinY = math.Min(out.MinY, q.Y)
		out.MaxX = math.Max(out.MaxX, q.X)
		out.MaxY = math.Max(out.MaxY, q.Y)
	}
	return out
}

// Pixels returns the integer pixel rectangle covering r.
func (r Rect) Pixels() image.Rectangle {
	if r.IsEmpty() || !r.IsFinite() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(r.MinX)),
		int(math.Floor(r.MinY)),
		int(math.Ceil(r.MaxX)),
		int(math.Ceil(r.MaxY)),
	)
}

// matrixEqual compares two matrices exactly. World transforms are
// recomputed from the same inputs, so bitwise equality means "unchanged".
func matrixEqual(a, b gg.Matrix) bool {
	return a.A == b.A && a.B == b.B && a.C == b.C &&
		a.D == b.D && a.E == b.E && a.F == b.F
}
