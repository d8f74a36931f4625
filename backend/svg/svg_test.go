package svg

import (
	"image/color"
	"strings"
	"testing"

	"github.com/gogpu/gg"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/node"
)

var red = color.RGBA{R: 255, A: 255}

func newDisplay(t *testing.T, root stage.Node) *stage.Display {
	t.Helper()
	d, err := stage.New(root,
		stage.WithSize(40, 20),
		stage.WithRenderers(stage.RendererSVG),
		stage.WithAssertions(true))
	if err != nil {
		t.Fatalf("stage.New() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Dispose() })
	return d
}

func surfaceOf(t *testing.T, d *stage.Display) *Surface {
	t.Helper()
	blocks := d.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	s, ok := blocks[0].Surface().(*Surface)
	if !ok {
		t.Fatalf("surface is %T, want *svg.Surface", blocks[0].Surface())
	}
	return s
}

func TestRecorder(t *testing.T) {
	r := newRecorder()
	r.LineTo(1, 1)
	r.LineTo(2, 1)
	r.SetColor(red)
	if err := r.Fill(); err != nil {
		t.Fatal(err)
	}
	r.DrawRectangle(0, 0, 3, 4)
	r.SetLineWidth(2)
	if err := r.Stroke(); err != nil {
		t.Fatal(err)
	}
	// Nothing to emit.
	if err := r.Fill(); err != nil {
		t.Fatal(err)
	}

	if len(r.shapes) != 2 {
		t.Fatalf("recorded %d shapes, want 2", len(r.shapes))
	}
	if got := pathData(r.shapes[0].path); got != "M1 1 L2 1" {
		t.Errorf("first path = %q", got)
	}
	if got := pathData(r.shapes[1].path); got != "M0 0 L3 0 L3 4 L0 4 Z" {
		t.Errorf("rect path = %q", got)
	}
	if !r.shapes[0].fill || r.shapes[1].fill {
		t.Error("fill flags mixed up")
	}
	if r.shapes[1].width != 2 {
		t.Errorf("stroke width = %v, want 2", r.shapes[1].width)
	}
	if r.shapes[0].color != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("color = %v", r.shapes[0].color)
	}
}

func TestRecorderCircle(t *testing.T) {
	r := newRecorder()
	r.DrawCircle(5, 5, 2)
	_ = r.Fill()
	path := r.shapes[0].path
	if len(path) != 6 {
		t.Fatalf("circle has %d segments, want 6", len(path))
	}
	if path[0].op != opMoveTo || path[5].op != opClose {
		t.Error("circle is not a closed path")
	}
	last := path[4].pts
	if last[4] != 7 || last[5] != 5 {
		t.Errorf("circle ends at (%v,%v), want (7,5)", last[4], last[5])
	}
}

func TestRecordsOnlyOnContentChange(t *testing.T) {
	rect := &node.Rect{Width: 10, Height: 10, Fill: red}
	box := node.New("box", node.WithPainter(rect))
	root := node.New("root", node.WithChildren(box))
	d := newDisplay(t, root)

	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}
	s := surfaceOf(t, d)
	if s.Records != 1 || s.Len() != 1 {
		t.Fatalf("Records = %d, Len = %d, want 1, 1", s.Records, s.Len())
	}
	if got := d.Image().RGBAAt(5, 5); got != red {
		t.Errorf("pixel (5,5) = %v, want red", got)
	}

	box.SetTransform(gg.Translate(20, 5))
	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}
	if s.Records != 1 {
		t.Errorf("moving re-recorded the element: Records = %d", s.Records)
	}
	if got := d.Image().RGBAAt(25, 10); got != red {
		t.Errorf("pixel (25,10) = %v, want red", got)
	}
	if got := d.Image().RGBAAt(5, 5); got.A != 0 {
		t.Errorf("pixel (5,5) = %v, want transparent", got)
	}

	rect.Fill = color.RGBA{G: 255, A: 255}
	box.Invalidate()
	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}
	if s.Records != 2 {
		t.Errorf("Records after invalidate = %d, want 2", s.Records)
	}
}

func TestMarkup(t *testing.T) {
	box := node.New("box",
		node.WithPainter(&node.Rect{Width: 10, Height: 10, Fill: red}),
		node.WithTransform(gg.Translate(3, 4)))
	ring := node.New("ring", node.WithPainter(&node.Circle{X: 5, Y: 5, Radius: 5, Stroke: color.Black, LineWidth: 2}))
	root := node.New("root", node.WithChildren(box, ring))
	d := newDisplay(t, root)
	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}

	out, err := Markup(d)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20" viewBox="0 0 40 20">`,
		`<path d="M0 0 L10 0 L10 10 L0 10 Z" transform="matrix(1 0 0 1 3 4)" fill="rgb(255,0,0)" fill-opacity="1" />`,
		`fill="none" stroke="rgb(0,0,0)" stroke-opacity="1" stroke-width="2"`,
		"</svg>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markup missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "M0 0 L10 0") > strings.Index(out, "stroke=") {
		t.Error("shapes are not in paint order")
	}
}

func TestMarkupBeforeFirstFrame(t *testing.T) {
	d := newDisplay(t, node.New("root"))
	out, err := Markup(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20"`) {
		t.Errorf("unexpected markup %q", out)
	}
}

func TestWriteSVGSkipsForeignSurfaces(t *testing.T) {
	var b strings.Builder
	if err := WriteSVG(&b, 4, 4, nil, &Surface{}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(b.String(), "<g>") != 1 {
		t.Errorf("got %q, want one group", b.String())
	}
}
