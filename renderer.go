package stage

import (
	"fmt"
	"math/bits"
	"strings"
)

// Renderer is a bitmask of rendering backends.
//
// A single bit names one backend; painters report the set of backends they
// can be drawn with, and nodes may carry a preference mask.
type Renderer uint32

// Renderer bits.
const (
	// RendererCanvas rasterizes a whole block into one gg.Context.
	RendererCanvas Renderer = 1 << iota

	// RendererSVG keeps one retained vector element per drawable.
	RendererSVG

	// RendererDOM keeps one retained element per drawable and places it
	// with its world transform. Group and shared-cache drawables live here.
	RendererDOM

	// RendererGPU rasterizes a block into a GPU-uploaded canvas.
	RendererGPU

	// RendererMask has every known renderer bit set.
	RendererMask = RendererCanvas | RendererSVG | RendererDOM | RendererGPU
)

// DefaultRendererOrder is the preference order used when a display is
// created without WithRenderers.
var DefaultRendererOrder = []Renderer{RendererCanvas, RendererSVG, RendererDOM, RendererGPU}

// String returns a human-readable name, joining multiple bits with "|".
func (r Renderer) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, b := range []struct {
		r    Renderer
		name string
	}{
		{RendererCanvas, "canvas"},
		{RendererSVG, "svg"},
		{RendererDOM, "dom"},
		{RendererGPU, "gpu"},
	} {
		if r&b.r != 0 {
			parts = append(parts, b.name)
		}
	}
	if rest := r &^ RendererMask; rest != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// IsSingle reports whether exactly one renderer bit is set.
func (r Renderer) IsSingle() bool {
	return bits.OnesCount32(uint32(r)) == 1
}

// Has reports whether all bits of o are set in r.
func (r Renderer) Has(o Renderer) bool {
	return o != 0 && r&o == o
}

// ParseRenderer parses a renderer name as printed by String. Several names
// may be joined with "|" or ",".
func ParseRenderer(s string) (Renderer, error) {
	var r Renderer
	for _, part := range strings.FieldsFunc(s, func(c rune) bool { return c == '|' || c == ',' }) {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "canvas":
			r |= RendererCanvas
		case "svg":
			r |= RendererSVG
		case "dom":
			r |= RendererDOM
		case "gpu":
			r |= RendererGPU
		default:
			return 0, fmt.Errorf("stage: unknown renderer %q", part)
		}
	}
	return r, nil
}
