package stage_test

import (
	"fmt"
	"image/color"
	"os"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/node"
)

// checkFails makes the Check of the fake backends of these renderers fail.
var checkFails stage.Renderer

func TestMain(m *testing.M) {
	for _, r := range []stage.Renderer{stage.RendererCanvas, stage.RendererSVG, stage.RendererDOM, stage.RendererGPU} {
		stage.Register(r, func() stage.Backend { return &fakeBackend{r: r} })
	}
	os.Exit(m.Run())
}

// fakeBackend hands out surfaces that record what they were asked to do.
type fakeBackend struct {
	r        stage.Renderer
	surfaces []*fakeSurface
}

func (b *fakeBackend) Renderer() stage.Renderer { return b.r }
func (b *fakeBackend) Name() string             { return "fake-" + b.r.String() }

func (b *fakeBackend) Check(stage.SurfaceConfig) error {
	if checkFails&b.r != 0 {
		return fmt.Errorf("fake %s unavailable", b.r)
	}
	return nil
}

func (b *fakeBackend) NewSurface(cfg stage.SurfaceConfig) (stage.Surface, error) {
	s := &fakeSurface{w: cfg.Width, h: cfg.Height}
	b.surfaces = append(b.surfaces, s)
	return s, nil
}

// live returns the number of surfaces not yet disposed.
func (b *fakeBackend) live() int {
	n := 0
	for _, s := range b.surfaces {
		if !s.disposed {
			n++
		}
	}
	return n
}

type fakeSurface struct {
	w, h     int
	updates  int
	disposed bool
}

// Update paints content-dirty self drawables into a no-op canvas and gives
// every drawable an element.
func (s *fakeSurface) Update(run []*stage.Drawable) error {
	s.updates++
	for _, dr := range run {
		if !dr.Dirty() {
			continue
		}
		if p := dr.Painter(); p != nil && dr.ContentDirty() {
			if err := p.Paint(nopCanvas{}); err != nil {
				return err
			}
		}
		if dr.Element() == nil {
			dr.SetElement(&fakeElement{})
		}
	}
	return nil
}

func (s *fakeSurface) Composite(draw.Image) {}

func (s *fakeSurface) Resize(width, height int) error {
	s.w, s.h = width, height
	return nil
}

func (s *fakeSurface) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }
func (s *fakeSurface) Dispose()                       { s.disposed = true }

type fakeElement struct {
	released bool
}

func (e *fakeElement) Release() { e.released = true }

type nopCanvas struct{}

func (nopCanvas) SetColor(color.Color)             {}
func (nopCanvas) SetLineWidth(float64)             {}
func (nopCanvas) MoveTo(float64, float64)          {}
func (nopCanvas) LineTo(float64, float64)          {}
func (nopCanvas) CubicTo(_, _, _, _, _, _ float64) {}
func (nopCanvas) ClosePath()                       {}
func (nopCanvas) DrawRectangle(_, _, _, _ float64) {}
func (nopCanvas) DrawCircle(_, _, _ float64)       {}
func (nopCanvas) Fill() error                      { return nil }
func (nopCanvas) Stroke() error                    { return nil }

// counter paints a 10x10 square and counts its Paint calls.
type counter struct {
	supports stage.Renderer
	calls    int
	err      error
	hook     func()
}

func (c *counter) Renderers() stage.Renderer {
	if c.supports == 0 {
		return stage.RendererMask
	}
	return c.supports
}

func (c *counter) Bounds() stage.Rect { return stage.RectXYWH(0, 0, 10, 10) }

func (c *counter) Paint(cv stage.Canvas) error {
	c.calls++
	if c.hook != nil {
		c.hook()
	}
	if c.err != nil {
		return c.err
	}
	cv.DrawRectangle(0, 0, 10, 10)
	return cv.Fill()
}

// leaf creates a node painted by a fresh counter.
func leaf(name string, r stage.Renderer, opts ...node.Option) (*node.Node, *counter) {
	c := &counter{supports: r}
	return node.New(name, append([]node.Option{node.WithPainter(c)}, opts...)...), c
}

// names returns the node names of drawables.
func names(drs []*stage.Drawable) []string {
	out := make([]string, 0, len(drs))
	for _, dr := range drs {
		out = append(out, dr.Node().(stage.Namer).Name())
	}
	return out
}
