package node

import (
	"image/color"

	"github.com/gogpu/stage"
)

// Rect paints an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64

	// Fill is the interior colour. Nil leaves the interior empty.
	Fill color.Color

	// Stroke is the outline colour. Nil draws no outline.
	Stroke    color.Color
	LineWidth float64

	// Supports restricts the renderers the rectangle can be drawn with.
	// Zero means every renderer.
	Supports stage.Renderer
}

// Renderers implements stage.Painter.
func (r *Rect) Renderers() stage.Renderer { return supports(r.Supports) }

// Bounds implements stage.Painter.
func (r *Rect) Bounds() stage.Rect {
	b := stage.RectXYWH(r.X, r.Y, r.Width, r.Height)
	return outset(b, r.Stroke, r.LineWidth)
}

// Paint implements stage.Painter.
func (r *Rect) Paint(c stage.Canvas) error {
	if r.Fill != nil {
		c.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		c.SetColor(r.Fill)
		if err := c.Fill(); err != nil {
			return err
		}
	}
	if r.Stroke != nil && r.LineWidth > 0 {
		c.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		c.SetColor(r.Stroke)
		c.SetLineWidth(r.LineWidth)
		return c.Stroke()
	}
	return nil
}

// Circle paints a circle centred at (X, Y).
type Circle struct {
	X, Y, Radius float64
	Fill         color.Color
	Stroke       color.Color
	LineWidth    float64
	Supports     stage.Renderer
}

// Renderers implements stage.Painter.
func (c *Circle) Renderers() stage.Renderer { return supports(c.Supports) }

// Bounds implements stage.Painter.
func (c *Circle) Bounds() stage.Rect {
	b := stage.Rect{MinX: c.X - c.Radius, MinY: c.Y - c.Radius, MaxX: c.X + c.Radius, MaxY: c.Y + c.Radius}
	return outset(b, c.Stroke, c.LineWidth)
}

// Paint implements stage.Painter.
func (c *Circle) Paint(cv stage.Canvas) error {
	if c.Fill != nil {
		cv.DrawCircle(c.X, c.Y, c.Radius)
		cv.SetColor(c.Fill)
		if err := cv.Fill(); err != nil {
			return err
		}
	}
	if c.Stroke != nil && c.LineWidth > 0 {
		cv.DrawCircle(c.X, c.Y, c.Radius)
		cv.SetColor(c.Stroke)
		cv.SetLineWidth(c.LineWidth)
		return cv.Stroke()
	}
	return nil
}

// Polyline paints a path through Points, closed and filled when Fill is
// set.
type Polyline struct {
	Points    [][2]float64
	Fill      color.Color
	Stroke    color.Color
	LineWidth float64
	Supports  stage.Renderer
}

// Renderers implements stage.Painter.
func (p *Polyline) Renderers() stage.Renderer { return supports(p.Supports) }

// Bounds implements stage.Painter.
func (p *Polyline) Bounds() stage.Rect {
	b := stage.EmptyRect()
	for _, pt := range p.Points {
		b.MinX = min(b.MinX, pt[0])
		b.MinY = min(b.MinY, pt[1])
		b.MaxX = max(b.MaxX, pt[0])
		b.MaxY = max(b.MaxY, pt[1])
	}
	return outset(b, p.Stroke, p.LineWidth)
}

// Paint implements stage.Painter.
func (p *Polyline) Paint(c stage.Canvas) error {
	if len(p.Points) < 2 {
		return nil
	}
	path := func(closed bool) {
		c.MoveTo(p.Points[0][0], p.Points[0][1])
		for _, pt := range p.Points[1:] {
			c.LineTo(pt[0], pt[1])
		}
		if closed {
			c.ClosePath()
		}
	}
	if p.Fill != nil {
		path(true)
		c.SetColor(p.Fill)
		if err := c.Fill(); err != nil {
			return err
		}
	}
	if p.Stroke != nil && p.LineWidth > 0 {
		path(p.Fill != nil)
		c.SetColor(p.Stroke)
		c.SetLineWidth(p.LineWidth)
		return c.Stroke()
	}
	return nil
}

// PainterFunc adapts a function to stage.Painter.
type PainterFunc struct {
	Supports stage.Renderer
	Area     stage.Rect
	Fn       func(c stage.Canvas) error
}

// Renderers implements stage.Painter.
func (f *PainterFunc) Renderers() stage.Renderer { return supports(f.Supports) }

// Bounds implements stage.Painter.
func (f *PainterFunc) Bounds() stage.Rect { return f.Area }

// Paint implements stage.Painter.
func (f *PainterFunc) Paint(c stage.Canvas) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(c)
}

func supports(r stage.Renderer) stage.Renderer {
	if r == 0 {
		return stage.RendererMask
	}
	return r
}

// outset grows b by half the stroke width.
func outset(b stage.Rect, stroke color.Color, width float64) stage.Rect {
	if stroke == nil || width <= 0 || b.IsEmpty() {
		return b
	}
	h := width / 2
	return stage.Rect{MinX: b.MinX - h, MinY: b.MinY - h, MaxX: b.MaxX + h, MaxY: b.MaxY + h}
}
