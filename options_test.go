package stage

import (
	"image/color"
	"slices"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.width != 640 || o.height != 480 {
		t.Errorf("default size = %dx%d, want 640x480", o.width, o.height)
	}
	if o.dpr != 1 {
		t.Errorf("default dpr = %v, want 1", o.dpr)
	}
	if !slices.Equal(o.order, DefaultRendererOrder) {
		t.Errorf("default order = %v, want %v", o.order, DefaultRendererOrder)
	}
	if o.assertions {
		t.Error("assertions should be off by default")
	}
}

func TestWithRenderers(t *testing.T) {
	tests := []struct {
		name string
		in   []Renderer
		want []Renderer
	}{
		{"keeps order", []Renderer{RendererSVG, RendererCanvas}, []Renderer{RendererSVG, RendererCanvas}},
		{"drops duplicates", []Renderer{RendererDOM, RendererSVG, RendererDOM}, []Renderer{RendererDOM, RendererSVG}},
		{"drops masks", []Renderer{RendererSVG | RendererDOM, RendererGPU}, []Renderer{RendererGPU}},
		{"drops zero", []Renderer{0, RendererCanvas}, []Renderer{RendererCanvas}},
		{"empty", nil, []Renderer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			WithRenderers(tt.in...)(&o)
			if !slices.Equal(o.order, tt.want) {
				t.Errorf("order = %v, want %v", o.order, tt.want)
			}
		})
	}
}

func TestWithDevicePixelRatioIgnoresNonPositive(t *testing.T) {
	o := defaultOptions()
	WithDevicePixelRatio(0)(&o)
	WithDevicePixelRatio(-2)(&o)
	if o.dpr != 1 {
		t.Errorf("dpr = %v, want 1", o.dpr)
	}
	WithDevicePixelRatio(1.5)(&o)
	if o.dpr != 1.5 {
		t.Errorf("dpr = %v, want 1.5", o.dpr)
	}
}

func TestWithBackgroundIgnoresNil(t *testing.T) {
	o := defaultOptions()
	WithBackground(nil)(&o)
	if o.background != color.Transparent {
		t.Errorf("background = %v, want transparent", o.background)
	}
	WithBackground(color.Black)(&o)
	if o.background != color.Black {
		t.Errorf("background = %v, want black", o.background)
	}
}
