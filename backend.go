package stage

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// SurfaceConfig describes the surface a block paints into.
type SurfaceConfig struct {
	// Width and Height are in device pixels.
	Width, Height int

	// DevicePixelRatio is the device to CSS pixel ratio of the display.
	DevicePixelRatio float64

	// DeviceProvider is the GPU device injected with WithDeviceProvider.
	// Nil unless the application provided one.
	DeviceProvider gpucontext.DeviceProvider

	// Logger is the display-scoped logger.
	Logger *slog.Logger
}

// Backend creates block surfaces for one renderer.
type Backend interface {
	// Renderer returns the single renderer bit this backend implements.
	Renderer() Renderer

	// Name returns a short human-readable name.
	Name() string

	// Check reports whether the backend can run with cfg. A display never
	// selects a renderer whose backend fails Check.
	Check(cfg SurfaceConfig) error

	// NewSurface creates the retained surface of one block.
	NewSurface(cfg SurfaceConfig) (Surface, error)
}

// Surface is the retained paint target of one block.
//
// Update receives the block's drawables in paint order. Drawables with
// Dirty() == true changed since the previous Update; clean drawables may
// reuse whatever the surface retained for them in their element slot.
type Surface interface {
	Update(run []*Drawable) error

	// Composite draws the surface content over dst. Only dst.Bounds() is
	// touched.
	Composite(dst draw.Image)

	// Resize changes the surface size in device pixels.
	Resize(width, height int) error

	// Format reports the pixel format of the surface content.
	Format() gputypes.TextureFormat

	// Dispose releases the surface. Elements stored on drawables are
	// released by the display.
	Dispose()
}

// ElementReleaser is implemented by element values stored with
// Drawable.SetElement that hold external resources.
type ElementReleaser interface {
	Release()
}

// BackendFactory creates a new backend instance.
// Factories are registered via Register and called once per display.
type BackendFactory func() Backend

// Registry state - protected by mutex for thread-safe access.
var (
	registryMu sync.RWMutex
	backends   = make(map[Renderer]BackendFactory)
)

// Register registers a backend factory for the renderer r.
// Backend packages call it from init(), following the database/sql driver
// pattern:
//
//	import _ "github.com/gogpu/stage/backend/canvas"
//
// Register panics if r is not a single known renderer bit, if factory is
// nil, or if r already has a backend.
func Register(r Renderer, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if !r.IsSingle() || r&^RendererMask != 0 {
		panic("stage: Register called with invalid renderer " + r.String())
	}
	if factory == nil {
		panic("stage: Register factory is nil")
	}
	if _, dup := backends[r]; dup {
		panic("stage: Register called twice for " + r.String())
	}
	backends[r] = factory
	Logger().Info("stage: backend registered", "renderer", r.String())
}

// Unregister removes the backend of r. It is a no-op if none is registered.
// This is primarily useful for tests.
func Unregister(r Renderer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, r)
}

// IsRegistered reports whether r has a backend.
func IsRegistered(r Renderer) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[r]
	return ok
}

// Backends returns the renderers with a registered backend, sorted by bit.
func Backends() []Renderer {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Renderer, 0, len(backends))
	for r := range backends {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// newBackend instantiates the backend of r.
// The error message includes a hint about forgotten imports.
func newBackend(r Renderer) (Backend, error) {
	registryMu.RLock()
	factory, ok := backends[r]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (forgotten import?)", ErrNoBackend, r)
	}
	return factory(), nil
}
