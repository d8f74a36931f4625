// Package svg provides the retained vector backend of stage.
//
// Each drawable keeps its painted shapes as an element. Elements are
// recorded again only when the drawable's content changed; moving a
// drawable just places the same element with the new world transform.
// The block raster used for compositing is produced by replaying the
// elements, and WriteSVG exports them as markup.
//
//	import _ "github.com/gogpu/stage/backend/svg"
package svg

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/internal/paint"
)

// BackendName is the name reported by the svg backend.
const BackendName = "svg"

// ErrInvalidDimensions is returned for non-positive surface sizes.
var ErrInvalidDimensions = errors.New("svg: invalid dimensions")

func init() {
	stage.Register(stage.RendererSVG, func() stage.Backend {
		return &Backend{}
	})
}

// Backend creates vector block surfaces.
type Backend struct {
	log *slog.Logger
}

// Renderer implements stage.Backend.
func (b *Backend) Renderer() stage.Renderer { return stage.RendererSVG }

// Name implements stage.Backend.
func (b *Backend) Name() string { return BackendName }

// SetLogger sets the display-scoped logger.
func (b *Backend) SetLogger(l *slog.Logger) { b.log = l }

// Check implements stage.Backend.
func (b *Backend) Check(cfg stage.SurfaceConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	return nil
}

// NewSurface implements stage.Backend.
func (b *Backend) NewSurface(cfg stage.SurfaceConfig) (stage.Surface, error) {
	if err := b.Check(cfg); err != nil {
		return nil, err
	}
	return &Surface{
		dc:  gg.NewContext(cfg.Width, cfg.Height),
		log: cfg.Logger,
	}, nil
}

// element is the retained vector content of one drawable.
type element struct {
	shapes []shape
}

// item is an element placed in device space.
type item struct {
	el    *element
	world gg.Matrix
}

// Surface holds the elements of one block.
type Surface struct {
	dc    *gg.Context
	img   *image.RGBA
	items []item
	log   *slog.Logger

	// Records counts element recordings.
	Records int
}

// Update implements stage.Surface.
func (s *Surface) Update(run []*stage.Drawable) error {
	s.items = s.items[:0]
	for _, dr := range run {
		if dr.Role() != stage.RoleSelf {
			return fmt.Errorf("%w: %s", paint.ErrUnsupportedRole, dr.Role())
		}
		el, ok := dr.Element().(*element)
		if !ok || dr.ContentDirty() {
			var err error
			if el, err = record(dr.Painter()); err != nil {
				return fmt.Errorf("svg: record %s: %w", dr.ID(), err)
			}
			dr.SetElement(el)
			s.Records++
		}
		s.items = append(s.items, item{el: el, world: dr.World()})
	}

	s.dc.Clear()
	for _, it := range s.items {
		if err := replay(s.dc, it.el.shapes, it.world); err != nil {
			return fmt.Errorf("svg: replay: %w", err)
		}
	}
	img, ok := s.dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("svg: unexpected image type %T", s.dc.Image())
	}
	s.img = img
	if s.log != nil {
		s.log.Debug("svg: block updated", "elements", len(s.items))
	}
	return nil
}

func record(p stage.Painter) (*element, error) {
	if p == nil {
		return &element{}, nil
	}
	r := newRecorder()
	if err := p.Paint(r); err != nil {
		return nil, err
	}
	return &element{shapes: r.shapes}, nil
}

// Composite implements stage.Surface.
func (s *Surface) Composite(dst draw.Image) {
	if s.img == nil {
		return
	}
	r := dst.Bounds()
	draw.Draw(dst, r, s.img, r.Min, draw.Over)
}

// Resize implements stage.Surface.
func (s *Surface) Resize(width, height int) error {
	if err := s.dc.Resize(width, height); err != nil {
		return fmt.Errorf("svg: %w", err)
	}
	s.img = nil
	return nil
}

// Format implements stage.Surface.
func (s *Surface) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Dispose implements stage.Surface.
func (s *Surface) Dispose() {
	_ = s.dc.Close()
	s.img = nil
	s.items = nil
}

// Image returns the last replayed block content.
func (s *Surface) Image() *image.RGBA { return s.img }

// Len returns the number of placed elements.
func (s *Surface) Len() int { return len(s.items) }

// WriteFragment writes the block as an SVG group element.
func (s *Surface) WriteFragment(w io.Writer) error {
	var b strings.Builder
	b.WriteString("<g>\n")
	for _, it := range s.items {
		m := it.world
		transform := "matrix(" + num(m.A) + " " + num(m.D) + " " + num(m.B) + " " +
			num(m.E) + " " + num(m.C) + " " + num(m.F) + ")"
		for _, sh := range it.el.shapes {
			b.WriteString(`  <path d="`)
			b.WriteString(pathData(sh.path))
			b.WriteString(`" transform="`)
			b.WriteString(transform)
			b.WriteString(`" `)
			paintAttrs(&b, sh)
			b.WriteString("/>\n")
		}
	}
	b.WriteString("</g>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func paintAttrs(b *strings.Builder, sh shape) {
	c := sh.color
	rgb := fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	opacity := num(float64(c.A) / 255)
	if sh.fill {
		fmt.Fprintf(b, `fill="%s" fill-opacity="%s" `, rgb, opacity)
		return
	}
	fmt.Fprintf(b, `fill="none" stroke="%s" stroke-opacity="%s" stroke-width="%s" `,
		rgb, opacity, num(sh.width))
}

// WriteSVG writes a standalone SVG document of width x height device
// pixels containing the svg surfaces in paint order. Surfaces of other
// backends are skipped.
func WriteSVG(w io.Writer, width, height int, surfaces ...stage.Surface) error {
	if _, err := fmt.Fprintf(w,
		"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		width, height, width, height); err != nil {
		return err
	}
	for _, s := range surfaces {
		vs, ok := s.(*Surface)
		if !ok {
			continue
		}
		if err := vs.WriteFragment(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</svg>\n")
	return err
}

// Markup returns the SVG document of the display's svg blocks.
func Markup(d *stage.Display) (string, error) {
	var surfaces []stage.Surface
	for _, blk := range d.Blocks() {
		if blk.Renderer() == stage.RendererSVG && blk.Surface() != nil {
			surfaces = append(surfaces, blk.Surface())
		}
	}
	img := d.Image()
	w, h := d.Size()
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	var b strings.Builder
	if err := WriteSVG(&b, w, h, surfaces...); err != nil {
		return "", err
	}
	return b.String(), nil
}
