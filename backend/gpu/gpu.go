// Package gpu provides the GPU-uploaded raster backend of stage.
//
// Each block owns a ggcanvas.Canvas on the device injected with
// stage.WithDeviceProvider. The block is rasterized on the CPU side of the
// canvas and uploaded to its texture on every repaint. Displays created
// without a device provider never select this backend.
//
//	import _ "github.com/gogpu/stage/backend/gpu"
package gpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/integration/ggcanvas"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/internal/paint"
)

// BackendName is the name reported by the gpu backend.
const BackendName = "gpu"

// ErrNoDevice is returned by Check when the display has no device provider.
var ErrNoDevice = errors.New("gpu: no device provider")

var roles = paint.Table{
	stage.RoleSelf: paint.Self,
}

func init() {
	stage.Register(stage.RendererGPU, func() stage.Backend {
		return &Backend{}
	})
}

// Backend creates GPU canvas block surfaces.
type Backend struct {
	log *slog.Logger
}

// Renderer implements stage.Backend.
func (b *Backend) Renderer() stage.Renderer { return stage.RendererGPU }

// Name implements stage.Backend.
func (b *Backend) Name() string { return BackendName }

// SetLogger sets the display-scoped logger.
func (b *Backend) SetLogger(l *slog.Logger) { b.log = l }

// Check implements stage.Backend.
func (b *Backend) Check(cfg stage.SurfaceConfig) error {
	if cfg.DeviceProvider == nil {
		return ErrNoDevice
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ggcanvas.ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	if b.log != nil {
		b.log.Debug("gpu: device provider", "format", cfg.DeviceProvider.SurfaceFormat())
	}
	return nil
}

// NewSurface implements stage.Backend.
func (b *Backend) NewSurface(cfg stage.SurfaceConfig) (stage.Surface, error) {
	if err := b.Check(cfg); err != nil {
		return nil, err
	}
	c, err := ggcanvas.New(cfg.DeviceProvider, cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	return &Surface{canvas: c, provider: cfg.DeviceProvider, log: cfg.Logger}, nil
}

// Surface is the GPU canvas of one block.
type Surface struct {
	canvas   *ggcanvas.Canvas
	provider gpucontext.DeviceProvider
	img      *image.RGBA
	texture  any
	log      *slog.Logger

	// Uploads counts texture uploads.
	Uploads int
}

// Update implements stage.Surface.
func (s *Surface) Update(run []*stage.Drawable) error {
	var perr error
	if err := s.canvas.Draw(func(dc *gg.Context) {
		perr = roles.Run(dc, run)
	}); err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	if perr != nil {
		return perr
	}
	tex, err := s.canvas.Flush()
	if err != nil {
		return fmt.Errorf("gpu: upload: %w", err)
	}
	s.texture = tex
	img, ok := s.canvas.Context().Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("gpu: unexpected image type %T", s.canvas.Context().Image())
	}
	s.img = img
	s.Uploads++
	if s.log != nil {
		s.log.Debug("gpu: block uploaded", "drawables", len(run))
	}
	return nil
}

// Composite implements stage.Surface. It draws the CPU copy of the
// uploaded content.
func (s *Surface) Composite(dst draw.Image) {
	if s.img == nil {
		return
	}
	r := dst.Bounds()
	draw.Draw(dst, r, s.img, r.Min, draw.Over)
}

// Resize implements stage.Surface.
func (s *Surface) Resize(width, height int) error {
	if err := s.canvas.Resize(width, height); err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	s.img = nil
	return nil
}

// Format implements stage.Surface. It is the provider's surface format.
func (s *Surface) Format() gputypes.TextureFormat {
	return s.provider.SurfaceFormat()
}

// Texture returns the texture handle of the last upload.
func (s *Surface) Texture() any { return s.texture }

// Dispose implements stage.Surface.
func (s *Surface) Dispose() {
	if err := s.canvas.Close(); err != nil && s.log != nil {
		s.log.Warn("gpu: close canvas", "err", err)
	}
	s.img = nil
	s.texture = nil
}
