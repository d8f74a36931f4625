package stage

import (
	"image"
	"math"
)

// DirtyRect is a device-space region that changed in a frame.
type DirtyRect struct {
	X, Y, Width, Height float64
}

// Rect returns r as a Rect.
func (r DirtyRect) Rect() Rect {
	return RectXYWH(r.X, r.Y, r.Width, r.Height)
}

// maxDirtyRects is the threshold after which a frame becomes a full redraw.
// Past this many rects, recompositing everything is cheaper than clipping.
const maxDirtyRects = 16

// damageTracker accumulates the regions of the output that must be
// recomposited in the current frame.
type damageTracker struct {
	dirtyRects []DirtyRect
	fullRedraw bool
}

// invalidate adds rect. Empty rects are ignored.
func (t *damageTracker) invalidate(rect DirtyRect) {
	if t.fullRedraw {
		return
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return
	}
	t.dirtyRects = append(t.dirtyRects, rect)
	if len(t.dirtyRects) > maxDirtyRects {
		t.invalidateAll()
	}
}

// invalidateRect adds r. Unbounded rects invalidate everything.
func (t *damageTracker) invalidateRect(r Rect) {
	if r.IsEmpty() {
		return
	}
	if !r.IsFinite() {
		t.invalidateAll()
		return
	}
	t.invalidate(DirtyRect{X: r.MinX, Y: r.MinY, Width: r.Width(), Height: r.Height()})
}

func (t *damageTracker) invalidateAll() {
	t.fullRedraw = true
	t.dirtyRects = t.dirtyRects[:0]
}

// empty reports whether nothing was invalidated.
func (t *damageTracker) empty() bool {
	return !t.fullRedraw && len(t.dirtyRects) == 0
}

// rects returns the pixel rectangles to recomposite, clipped to full.
func (t *damageTracker) rects(full image.Rectangle) []image.Rectangle {
	if t.fullRedraw {
		return []image.Rectangle{full}
	}
	out := make([]image.Rectangle, 0, len(t.dirtyRects))
	for _, r := range t.dirtyRects {
		px := image.Rect(
			int(math.Floor(r.X)), int(math.Floor(r.Y)),
			int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
		).Intersect(full)
		if !px.Empty() {
			out = append(out, px)
		}
	}
	return out
}

// snapshot copies the accumulated state.
func (t *damageTracker) snapshot() damageTracker {
	return damageTracker{
		dirtyRects: append([]DirtyRect(nil), t.dirtyRects...),
		fullRedraw: t.fullRedraw,
	}
}

func (t *damageTracker) reset() {
	t.dirtyRects = t.dirtyRects[:0]
	t.fullRedraw = false
}

// Damage returns the device-space regions recomposited by the last frame.
// It returns nil when the last frame was a full redraw; check
// NeedsFullRedraw first.
func (d *Display) Damage() []DirtyRect {
	if d.lastDamage.fullRedraw {
		return nil
	}
	return d.lastDamage.dirtyRects
}

// NeedsFullRedraw reports whether the last frame recomposited the whole
// output.
func (d *Display) NeedsFullRedraw() bool {
	return d.lastDamage.fullRedraw
}
