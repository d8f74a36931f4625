// Package dom provides the retained element backend of stage.
//
// Every drawable keeps its own raster element, painted in local
// coordinates at the scale of its world transform. Moving a drawable only
// places the same element elsewhere; the element is painted again when
// its content or its scale changed. The dom backend also hosts group and
// shared-cache drawables.
//
//	import _ "github.com/gogpu/stage/backend/dom"
package dom

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/internal/paint"
	"github.com/gogpu/stage/internal/rasterpool"
)

// BackendName is the name reported by the dom backend.
const BackendName = "dom"

// DefaultPoolBytes is the raster pool budget of one backend.
const DefaultPoolBytes = 32 << 20

// maxElementSide bounds the raster size of one element.
const maxElementSide = 8192

// ErrInvalidDimensions is returned for non-positive surface sizes.
var ErrInvalidDimensions = errors.New("dom: invalid dimensions")

func init() {
	stage.Register(stage.RendererDOM, func() stage.Backend {
		return &Backend{pool: rasterpool.New(DefaultPoolBytes)}
	})
}

// placeFunc turns a drawable into a placed element.
type placeFunc func(s *Surface, dr *stage.Drawable) (item, error)

// roles places the drawables of every role.
var roles = [stage.NumRoles]placeFunc{
	stage.RoleSelf:        placeSelf,
	stage.RoleGroup:       placeGroup,
	stage.RoleSharedCache: placeShared,
}

// Backend creates element block surfaces. Surfaces of one backend share a
// raster pool.
type Backend struct {
	pool *rasterpool.Pool
	log  *slog.Logger
}

// Renderer implements stage.Backend.
func (b *Backend) Renderer() stage.Renderer { return stage.RendererDOM }

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
	return &Surface{pool: b.pool, log: cfg.Logger}, nil
}

// PoolStats returns the statistics of the element raster pool.
func (b *Backend) PoolStats() rasterpool.Stats { return b.pool.Stats() }

// element is the raster of one self drawable.
type element struct {
	pool  *rasterpool.Pool
	img   *image.RGBA
	scale float64
	// toLocal maps raster pixels to local coordinates.
	toLocal gg.Matrix
}

// Release implements stage.ElementReleaser.
func (e *element) Release() {
	e.pool.Put(e.img)
	e.img = nil
}

// item is one placed element.
type item struct {
	img *image.RGBA
	// m maps img pixels to device pixels.
	m gg.Matrix

	// layer is set for group drawables; it is already in device pixels.
	layer   *image.RGBA
	opacity float64
	clip    image.Rectangle
	clipped bool
}

// Surface places the elements of one block.
type Surface struct {
	pool    *rasterpool.Pool
	scratch *gg.Context
	items   []item
	log     *slog.Logger

	// Rasters counts element paints.
	Rasters int
}

// Update implements stage.Surface.
func (s *Surface) Update(run []*stage.Drawable) error {
	s.items = s.items[:0]
	for _, dr := range run {
		r := dr.Role()
		if int(r) >= len(roles) || roles[r] == nil {
			return fmt.Errorf("%w: %s", paint.ErrUnsupportedRole, r)
		}
		it, err := roles[r](s, dr)
		if err != nil {
			return fmt.Errorf("dom: %s %s: %w", r, dr.ID(), err)
		}
		s.items = append(s.items, it)
	}
	if s.log != nil {
		s.log.Debug("dom: block updated", "elements", len(s.items))
	}
	return nil
}

func placeSelf(s *Surface, dr *stage.Drawable) (item, error) {
	world := dr.World()
	scale := elementScale(world)
	el, ok := dr.Element().(*element)
	if !ok || dr.ContentDirty() || el.scale != scale {
		var err error
		if el, err = s.raster(dr.Painter(), scale); err != nil {
			return item{}, err
		}
		dr.SetElement(el)
	}
	return item{img: el.img, m: world.Multiply(el.toLocal), opacity: 1}, nil
}

func placeGroup(_ *Surface, dr *stage.Drawable) (item, error) {
	it := item{layer: dr.GroupLayer(), opacity: dr.Opacity()}
	it.clip, it.clipped = dr.Clip()
	return it, nil
}

func placeShared(_ *Surface, dr *stage.Drawable) (item, error) {
	img, m := dr.SharedImage()
	return item{img: img, m: m, opacity: 1}, nil
}

// elementScale returns the raster scale for world. Degenerate transforms
// paint at scale 1.
func elementScale(world gg.Matrix) float64 {
	s := world.MaxScaleFactor()
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}

// raster paints p into a pooled raster at scale.
func (s *Surface) raster(p stage.Painter, scale float64) (*element, error) {
	el := &element{pool: s.pool, scale: scale, toLocal: gg.Identity()}
	if p == nil {
		return el, nil
	}
	b := p.Bounds()
	if b.IsEmpty() || !b.IsFinite() {
		return el, nil
	}
	w := int(math.Ceil(b.Width() * scale))
	h := int(math.Ceil(b.Height() * scale))
	if w <= 0 || h <= 0 {
		return el, nil
	}
	if w > maxElementSide || h > maxElementSide {
		scale = math.Min(maxElementSide/b.Width(), maxElementSide/b.Height())
		w = min(int(math.Ceil(b.Width()*scale)), maxElementSide)
		h = min(int(math.Ceil(b.Height()*scale)), maxElementSide)
	}

	if s.scratch == nil {
		s.scratch = gg.NewContext(w, h)
	} else if s.scratch.Width() != w || s.scratch.Height() != h {
		if err := s.scratch.Resize(w, h); err != nil {
			return nil, err
		}
	}
	dc := s.scratch
	dc.Clear()
	dc.SetTransform(gg.Scale(scale, scale).Multiply(gg.Translate(-b.MinX, -b.MinY)))
	err := p.Paint(dc)
	dc.Identity()
	if err != nil {
		return nil, err
	}

	el.img = s.pool.Get(w, h)
	copy(el.img.Pix, dc.ResizeTarget().Data())
	el.toLocal = gg.Translate(b.MinX, b.MinY).Multiply(gg.Scale(1/scale, 1/scale))
	s.Rasters++
	return el, nil
}

// Composite implements stage.Surface.
func (s *Surface) Composite(dst draw.Image) {
	r := dst.Bounds()
	for _, it := range s.items {
		switch {
		case it.layer != nil:
			compositeLayer(dst, r, it)
		case it.img != nil:
			m := it.m
			aff := f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
			draw.BiLinear.Transform(dst, aff, it.img, it.img.Bounds(), draw.Over, nil)
		}
	}
}

func compositeLayer(dst draw.Image, r image.Rectangle, it item) {
	if it.clipped {
		r = r.Intersect(it.clip)
	}
	r = r.Intersect(it.layer.Bounds())
	if r.Empty() || it.opacity <= 0 {
		return
	}
	if it.opacity >= 1 {
		draw.Draw(dst, r, it.layer, r.Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(it.opacity * 255))})
	draw.DrawMask(dst, r, it.layer, r.Min, mask, image.Point{}, draw.Over)
}

// Resize implements stage.Surface. Elements are in local coordinates and
// survive a resize.
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// Format implements stage.Surface.
func (s *Surface) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Dispose implements stage.Surface.
func (s *Surface) Dispose() {
	if s.scratch != nil {
		_ = s.scratch.Close()
		s.scratch = nil
	}
	s.items = nil
}

// Len returns the number of placed elements.
func (s *Surface) Len() int { return len(s.items) }
