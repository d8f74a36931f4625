package stage

import (
	"image/color"
	"log/slog"

	"github.com/gogpu/gpucontext"
)

// Option configures a Display during creation.
//
// Example:
//
//	d, err := stage.New(root,
//	    stage.WithSize(800, 600),
//	    stage.WithRenderers(stage.RendererSVG, stage.RendererCanvas),
//	    stage.WithAssertions(true),
//	)
type Option func(*options)

// options holds optional configuration for Display creation.
type options struct {
	width, height int
	dpr           float64
	background    color.Color
	order         []Renderer
	assertions    bool
	logger        *slog.Logger
	provider      gpucontext.DeviceProvider
	frameHook     func(FrameStats)
}

// defaultOptions returns the default display options.
func defaultOptions() options {
	return options{
		width:      640,
		height:     480,
		dpr:        1,
		background: color.Transparent,
		order:      DefaultRendererOrder,
	}
}

// WithSize sets the initial display size in CSS pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithDevicePixelRatio sets the ratio of device pixels to CSS pixels.
// Non-positive values are ignored.
func WithDevicePixelRatio(ratio float64) Option {
	return func(o *options) {
		if ratio > 0 {
			o.dpr = ratio
		}
	}
}

// WithBackground sets the colour the output is cleared to before blocks
// are composited.
func WithBackground(c color.Color) Option {
	return func(o *options) {
		if c != nil {
			o.background = c
		}
	}
}

// WithRenderers sets the renderer preference order. Renderers missing from
// the list are never chosen.
//
// Example:
//
//	// Prefer vector output, fall back to rasterizing.
//	stage.New(root, stage.WithRenderers(stage.RendererSVG, stage.RendererCanvas))
func WithRenderers(order ...Renderer) Option {
	return func(o *options) {
		out := make([]Renderer, 0, len(order))
		var seen Renderer
		for _, r := range order {
			if !r.IsSingle() || seen&r != 0 {
				continue
			}
			seen |= r
			out = append(out, r)
		}
		o.order = out
	}
}

// WithAssertions enables structural invariant checks. A violated check
// panics with an *InvariantError, and every frame ends with a full Audit.
// Intended for tests and development builds.
func WithAssertions(enabled bool) Option {
	return func(o *options) {
		o.assertions = enabled
	}
}

// WithLogger sets a display-scoped logger. Without it the package logger
// from [Logger] is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDeviceProvider injects the GPU device used by the gpu backend.
// Without a provider the gpu renderer is unavailable.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithFrameHook registers fn to receive the statistics of every frame that
// completed successfully.
func WithFrameHook(fn func(FrameStats)) Option {
	return func(o *options) {
		o.frameHook = fn
	}
}
