// Package canvas provides the raster backend of stage.
//
// Every block owns one gg.Context covering the display. When any member
// of the block changed, the whole block is rasterized again in paint order.
// The backend registers itself for stage.RendererCanvas on import:
//
//	import _ "github.com/gogpu/stage/backend/canvas"
package canvas

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/internal/paint"
)

// BackendName is the name reported by the canvas backend.
const BackendName = "canvas"

// ErrInvalidDimensions is returned for non-positive surface sizes.
var ErrInvalidDimensions = errors.New("canvas: invalid dimensions")

// roles paints the drawables a canvas block may hold. Group and
// shared-cache drawables are hosted by the dom backend.
var roles = paint.Table{
	stage.RoleSelf: paint.Self,
}

// init registers the canvas backend on package import.
func init() {
	stage.Register(stage.RendererCanvas, func() stage.Backend {
		return &Backend{}
	})
}

// Backend creates raster block surfaces.
type Backend struct {
	log *slog.Logger
}

// Renderer implements stage.Backend.
func (b *Backend) Renderer() stage.Renderer { return stage.RendererCanvas }

// Name implements stage.Backend.
func (b *Backend) Name() string { return BackendName }

// SetLogger sets the display-scoped logger.
func (b *Backend) SetLogger(l *slog.Logger) { b.log = l }

// Check implements stage.Backend. The raster backend runs everywhere.
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

// Surface is the raster target of one block.
type Surface struct {
	dc  *gg.Context
	img *image.RGBA
	log *slog.Logger

	// Paints counts full block rasterizations.
	Paints int
}

// Update implements stage.Surface.
func (s *Surface) Update(run []*stage.Drawable) error {
	if err := roles.Run(s.dc, run); err != nil {
		return err
	}
	img, ok := s.dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("canvas: unexpected image type %T", s.dc.Image())
	}
	s.img = img
	s.Paints++
	if s.log != nil {
		s.log.Debug("canvas: block rasterized", "drawables", len(run))
	}
	return nil
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
		return fmt.Errorf("canvas: %w", err)
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
}

// Image returns the last rasterized block content.
func (s *Surface) Image() *image.RGBA { return s.img }
