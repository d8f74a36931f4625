package svg

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/gogpu/gg"

	"github.com/gogpu/stage"
)

// kappa is the cubic Bézier control distance approximating a quarter circle.
const kappa = 0.5522847498307936

// segOp is a path verb.
type segOp uint8

const (
	opMoveTo segOp = iota
	opLineTo
	opCubicTo
	opClose
)

// segment is one path command. Only the first 2 (MoveTo, LineTo) or 6
// (CubicTo) coordinates are used.
type segment struct {
	op  segOp
	pts [6]float64
}

// shape is one filled or stroked path.
type shape struct {
	path  []segment
	color color.NRGBA
	fill  bool
	width float64
}

// recorder is a stage.Canvas that keeps the painted shapes as vector data
// instead of rasterizing them.
type recorder struct {
	path   []segment
	color  color.Color
	width  float64
	shapes []shape
}

var _ stage.Canvas = (*recorder)(nil)

func newRecorder() *recorder {
	return &recorder{color: color.Black, width: 1}
}

func (r *recorder) SetColor(c color.Color)     { r.color = c }
func (r *recorder) SetLineWidth(width float64) { r.width = width }

func (r *recorder) MoveTo(x, y float64) {
	r.path = append(r.path, segment{op: opMoveTo, pts: [6]float64{x, y}})
}

func (r *recorder) LineTo(x, y float64) {
	if len(r.path) == 0 {
		r.MoveTo(x, y)
		return
	}
	r.path = append(r.path, segment{op: opLineTo, pts: [6]float64{x, y}})
}

func (r *recorder) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	if len(r.path) == 0 {
		r.MoveTo(c1x, c1y)
	}
	r.path = append(r.path, segment{op: opCubicTo, pts: [6]float64{c1x, c1y, c2x, c2y, x, y}})
}

func (r *recorder) ClosePath() {
	if len(r.path) > 0 {
		r.path = append(r.path, segment{op: opClose})
	}
}

func (r *recorder) DrawRectangle(x, y, w, h float64) {
	r.MoveTo(x, y)
	r.LineTo(x+w, y)
	r.LineTo(x+w, y+h)
	r.LineTo(x, y+h)
	r.ClosePath()
}

func (r *recorder) DrawCircle(x, y, radius float64) {
	k := radius * kappa
	r.MoveTo(x+radius, y)
	r.CubicTo(x+radius, y+k, x+k, y+radius, x, y+radius)
	r.CubicTo(x-k, y+radius, x-radius, y+k, x-radius, y)
	r.CubicTo(x-radius, y-k, x-k, y-radius, x, y-radius)
	r.CubicTo(x+k, y-radius, x+radius, y-k, x+radius, y)
	r.ClosePath()
}

func (r *recorder) Fill() error {
	r.emit(true)
	return nil
}

func (r *recorder) Stroke() error {
	r.emit(false)
	return nil
}

// emit turns the current path into a shape and starts a new path.
func (r *recorder) emit(fill bool) {
	if len(r.path) == 0 {
		return
	}
	c, _ := color.NRGBAModel.Convert(r.color).(color.NRGBA) //nolint:errcheck // NRGBAModel always returns NRGBA
	r.shapes = append(r.shapes, shape{
		path:  r.path,
		color: c,
		fill:  fill,
		width: r.width,
	})
	r.path = nil
}

// replay draws the shapes into dc with transform m.
func replay(dc *gg.Context, shapes []shape, m gg.Matrix) error {
	dc.SetTransform(m)
	defer dc.Identity()
	for _, sh := range shapes {
		for _, s := range sh.path {
			switch s.op {
			case opMoveTo:
				dc.MoveTo(s.pts[0], s.pts[1])
			case opLineTo:
				dc.LineTo(s.pts[0], s.pts[1])
			case opCubicTo:
				dc.CubicTo(s.pts[0], s.pts[1], s.pts[2], s.pts[3], s.pts[4], s.pts[5])
			case opClose:
				dc.ClosePath()
			}
		}
		dc.SetColor(sh.color)
		var err error
		if sh.fill {
			err = dc.Fill()
		} else {
			dc.SetLineWidth(sh.width)
			err = dc.Stroke()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// pathData formats a path as the d attribute of an SVG path element.
func pathData(path []segment) string {
	var b strings.Builder
	for i, s := range path {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s.op {
		case opMoveTo:
			b.WriteString("M")
			writeNums(&b, s.pts[:2])
		case opLineTo:
			b.WriteString("L")
			writeNums(&b, s.pts[:2])
		case opCubicTo:
			b.WriteString("C")
			writeNums(&b, s.pts[:6])
		case opClose:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func writeNums(b *strings.Builder, v []float64) {
	for i, f := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(num(f))
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
