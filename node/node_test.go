package node

import (
	"fmt"
	"image/color"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/gg"

	"github.com/gogpu/stage"
)

// recorder collects the changes a node reports.
type recorder struct {
	changes []stage.Change
}

func (r *recorder) NodeChanged(_ stage.Node, c stage.Change) {
	r.changes = append(r.changes, c)
}

func (r *recorder) take() []stage.Change {
	out := r.changes
	r.changes = nil
	return out
}

func TestNewDefaults(t *testing.T) {
	n := New("n")
	if n.Name() != "n" || !n.Visible() || n.Opacity() != 1 {
		t.Errorf("New() = name %q visible %v opacity %v", n.Name(), n.Visible(), n.Opacity())
	}
	if n.Transform() != gg.Identity() {
		t.Errorf("Transform() = %v, want identity", n.Transform())
	}
	if _, ok := n.Clip(); ok {
		t.Error("new node has a clip")
	}
	if n.RendererHint() != 0 || n.Isolated() || n.SharedCache() || n.Painter() != nil {
		t.Error("new node has compositing state")
	}
}

func TestOptions(t *testing.T) {
	child := New("child")
	p := &Rect{Width: 1, Height: 1}
	n := New("n",
		WithPainter(p),
		WithTransform(gg.Translate(1, 2)),
		WithChildren(child),
		WithRendererHint(stage.RendererSVG),
		WithOpacity(0.5),
		WithIsolation(),
		WithSharedCache(),
		WithClip(stage.RectXYWH(0, 0, 3, 3)),
		WithCursor("pointer"),
		Hidden(),
	)
	if n.Painter() != p || n.Transform() != gg.Translate(1, 2) {
		t.Error("painter or transform not applied")
	}
	if len(n.Children()) != 1 || n.Children()[0] != child {
		t.Error("children not applied")
	}
	if n.RendererHint() != stage.RendererSVG || n.Opacity() != 0.5 || !n.Isolated() || !n.SharedCache() {
		t.Error("compositing options not applied")
	}
	if r, ok := n.Clip(); !ok || r != stage.RectXYWH(0, 0, 3, 3) {
		t.Errorf("Clip() = %v, %v", r, ok)
	}
	if n.Cursor() != "pointer" || n.Visible() {
		t.Error("cursor or visibility not applied")
	}
}

func TestMutatorsNotify(t *testing.T) {
	n := New("n")
	a, b := New("a"), New("b")
	rec := &recorder{}
	n.AddObserver(rec)

	tests := []struct {
		name string
		fn   func()
		want stage.Change
	}{
		{"SetChildren", func() { n.SetChildren(a) }, stage.ChangeChildren},
		{"AddChild", func() { n.AddChild(b) }, stage.ChangeChildren},
		{"MoveChild", func() { n.MoveChild(0, 1) }, stage.ChangeChildren},
		{"RemoveChild", func() { n.RemoveChild(a) }, stage.ChangeChildren},
		{"InsertChild", func() { n.InsertChild(0, a) }, stage.ChangeChildren},
		{"SetTransform", func() { n.SetTransform(gg.Scale(2, 2)) }, stage.ChangeTransform},
		{"SetVisible", func() { n.SetVisible(false) }, stage.ChangeVisibility},
		{"SetOpacity", func() { n.SetOpacity(0.3) }, stage.ChangeCompositing},
		{"SetClip", func() { n.SetClip(stage.RectXYWH(0, 0, 1, 1)) }, stage.ChangeCompositing},
		{"ClearClip", func() { n.ClearClip() }, stage.ChangeCompositing},
		{"SetIsolated", func() { n.SetIsolated(true) }, stage.ChangeCompositing},
		{"SetSharedCache", func() { n.SetSharedCache(true) }, stage.ChangeCompositing | stage.ChangeChildren},
		{"SetRendererHint", func() { n.SetRendererHint(stage.RendererDOM) }, stage.ChangeRenderer},
		{"SetPainter", func() { n.SetPainter(&Rect{}) }, stage.ChangeContent | stage.ChangeRenderer},
		{"Invalidate", func() { n.Invalidate() }, stage.ChangeContent},
		{"SetCursor", func() { n.SetCursor("move") }, stage.ChangeContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn()
			got := rec.take()
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("changes = %v, want [%v]", got, tt.want)
			}
		})
	}
}

func TestNoOpMutatorsStaySilent(t *testing.T) {
	n := New("n", WithOpacity(0.5), WithIsolation(), WithRendererHint(stage.RendererGPU))
	rec := &recorder{}
	n.AddObserver(rec)

	n.SetVisible(true)
	n.SetOpacity(0.5)
	n.ClearClip()
	n.SetIsolated(true)
	n.SetSharedCache(false)
	n.SetRendererHint(stage.RendererGPU)
	n.MoveChild(0, 0)
	if n.RemoveChild(New("stranger")) {
		t.Error("RemoveChild reported a non-child")
	}
	if got := rec.take(); len(got) != 0 {
		t.Errorf("no-op mutations notified %v", got)
	}
}

func TestChildOrder(t *testing.T) {
	a, b, c := New("a"), New("b"), New("c")
	n := New("n", WithChildren(a, b))

	n.InsertChild(99, c)
	n.InsertChild(-1, New("d"))
	n.MoveChild(3, 0)
	n.MoveChild(0, 7)

	var got []string
	for _, ch := range n.Children() {
		got = append(got, ch.(*Node).Name())
	}
	want := []string{"d", "a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}

	kids := n.Children()
	kids[0] = nil
	if n.Children()[0] == nil {
		t.Error("Children() exposes the internal slice")
	}
}

func TestObservers(t *testing.T) {
	n := New("n")
	rec := &recorder{}
	n.AddObserver(rec)
	n.AddObserver(rec)
	if n.Observers() != 1 {
		t.Fatalf("Observers() = %d after adding twice, want 1", n.Observers())
	}

	// An observer may remove itself while being notified.
	var self *selfRemover
	self = &selfRemover{fn: func() { n.RemoveObserver(self) }}
	n.AddObserver(self)
	n.Invalidate()
	n.Invalidate()
	if self.calls != 1 {
		t.Errorf("self-removing observer called %d times, want 1", self.calls)
	}
	if len(rec.take()) != 2 {
		t.Error("remaining observer missed a change")
	}

	n.RemoveObserver(rec)
	n.Invalidate()
	if n.Observers() != 0 || len(rec.changes) != 0 {
		t.Error("removed observer still notified")
	}
}

type selfRemover struct {
	calls int
	fn    func()
}

func (s *selfRemover) NodeChanged(stage.Node, stage.Change) {
	s.calls++
	s.fn()
}

// ops records the canvas calls of a painter.
type ops struct {
	calls []string
}

func (o *ops) add(format string, args ...any) { o.calls = append(o.calls, fmt.Sprintf(format, args...)) }

func (o *ops) SetColor(c color.Color) {
	r, g, b, a := c.RGBA()
	o.add("color %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
}
func (o *ops) SetLineWidth(w float64)           { o.add("width %v", w) }
func (o *ops) MoveTo(x, y float64)              { o.add("M %v %v", x, y) }
func (o *ops) LineTo(x, y float64)              { o.add("L %v %v", x, y) }
func (o *ops) CubicTo(_, _, _, _, x, y float64) { o.add("C %v %v", x, y) }
func (o *ops) ClosePath()                       { o.add("Z") }
func (o *ops) DrawRectangle(x, y, w, h float64) { o.add("rect %v %v %v %v", x, y, w, h) }
func (o *ops) DrawCircle(x, y, r float64)       { o.add("circle %v %v %v", x, y, r) }
func (o *ops) Fill() error                      { o.add("fill"); return nil }
func (o *ops) Stroke() error                    { o.add("stroke"); return nil }
func (o *ops) String() string                   { return strings.Join(o.calls, "; ") }

func TestPainters(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	tests := []struct {
		name   string
		p      stage.Painter
		bounds stage.Rect
		ops    string
	}{
		{
			name:   "filled rect",
			p:      &Rect{X: 1, Y: 2, Width: 3, Height: 4, Fill: white},
			bounds: stage.RectXYWH(1, 2, 3, 4),
			ops:    "rect 1 2 3 4; color 255 255 255 255; fill",
		},
		{
			name:   "stroked rect",
			p:      &Rect{Width: 4, Height: 4, Stroke: white, LineWidth: 2},
			bounds: stage.Rect{MinX: -1, MinY: -1, MaxX: 5, MaxY: 5},
			ops:    "rect 0 0 4 4; color 255 255 255 255; width 2; stroke",
		},
		{
			name:   "stroke without width",
			p:      &Rect{Width: 4, Height: 4, Stroke: white},
			bounds: stage.RectXYWH(0, 0, 4, 4),
			ops:    "",
		},
		{
			name:   "circle",
			p:      &Circle{X: 5, Y: 5, Radius: 2, Fill: white},
			bounds: stage.RectXYWH(3, 3, 4, 4),
			ops:    "circle 5 5 2; color 255 255 255 255; fill",
		},
		{
			name:   "open polyline",
			p:      &Polyline{Points: [][2]float64{{0, 0}, {4, 2}}, Stroke: white, LineWidth: 1},
			bounds: stage.Rect{MinX: -0.5, MinY: -0.5, MaxX: 4.5, MaxY: 2.5},
			ops:    "M 0 0; L 4 2; color 255 255 255 255; width 1; stroke",
		},
		{
			name:   "filled polyline",
			p:      &Polyline{Points: [][2]float64{{0, 0}, {4, 0}, {4, 4}}, Fill: white},
			bounds: stage.RectXYWH(0, 0, 4, 4),
			ops:    "M 0 0; L 4 0; L 4 4; Z; color 255 255 255 255; fill",
		},
		{
			name:   "short polyline",
			p:      &Polyline{Points: [][2]float64{{1, 1}}, Fill: white},
			bounds: stage.Rect{MinX: 1, MinY: 1, MaxX: 1, MaxY: 1},
			ops:    "",
		},
		{
			name:   "func without body",
			p:      &PainterFunc{Area: stage.RectXYWH(0, 0, 1, 1)},
			bounds: stage.RectXYWH(0, 0, 1, 1),
			ops:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Bounds(); got != tt.bounds {
				t.Errorf("Bounds() = %v, want %v", got, tt.bounds)
			}
			var o ops
			if err := tt.p.Paint(&o); err != nil {
				t.Fatal(err)
			}
			if got := o.String(); got != tt.ops {
				t.Errorf("Paint() ops = %q, want %q", got, tt.ops)
			}
		})
	}
}

func TestPainterRenderers(t *testing.T) {
	if got := (&Rect{}).Renderers(); got != stage.RendererMask {
		t.Errorf("zero Supports = %v, want every renderer", got)
	}
	if got := (&Circle{Supports: stage.RendererSVG}).Renderers(); got != stage.RendererSVG {
		t.Errorf("Renderers() = %v, want svg", got)
	}
	called := false
	f := &PainterFunc{Supports: stage.RendererDOM, Fn: func(stage.Canvas) error {
		called = true
		return nil
	}}
	if f.Renderers() != stage.RendererDOM {
		t.Error("PainterFunc ignores Supports")
	}
	if err := f.Paint(&ops{}); err != nil || !called {
		t.Errorf("PainterFunc.Paint() = %v, called %v", err, called)
	}
}
