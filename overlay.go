package stage

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
)

// Overlay draws content above the synchronized tree, for example debug
// overlays or drag feedback. Overlays are updated once per frame after the
// blocks were repainted, in ascending z.
type Overlay interface {
	// Update draws into dc and reports whether the content changed. The
	// context keeps its pixels between frames and is set up in CSS pixels;
	// an overlay that redraws clears it first.
	Update(dc *gg.Context) (changed bool, err error)
}

// overlayLayer is one z-ordered overlay with its retained raster.
type overlayLayer struct {
	overlay Overlay
	dc      *gg.Context
	img     *image.RGBA
	visible bool
}

// AddOverlay adds o at z. Higher z values are drawn on top.
// Returns an error if an overlay with the same z already exists.
func (d *Display) AddOverlay(o Overlay, z int) error {
	if d.disposed {
		return ErrDisposed
	}
	if d.phase != PhaseIdle {
		return ErrFrameInProgress
	}
	if o == nil {
		return errors.New("stage: nil overlay")
	}
	if _, exists := d.overlays[z]; exists {
		return fmt.Errorf("%w: z=%d", ErrOverlayExists, z)
	}
	b := d.bounds()
	d.overlays[z] = &overlayLayer{
		overlay: o,
		dc:      gg.NewContext(b.Dx(), b.Dy()),
		visible: true,
	}
	d.overlayOrder = nil
	return nil
}

// RemoveOverlay removes the overlay at z.
// Returns an error if the overlay does not exist.
func (d *Display) RemoveOverlay(z int) error {
	if d.phase != PhaseIdle {
		return ErrFrameInProgress
	}
	l, exists := d.overlays[z]
	if !exists {
		return fmt.Errorf("%w: z=%d", ErrNoOverlay, z)
	}
	_ = l.dc.Close()
	delete(d.overlays, z)
	d.overlayOrder = nil
	d.overlaysChanged = true
	return nil
}

// SetOverlayVisible shows or hides the overlay at z without dropping its
// content.
func (d *Display) SetOverlayVisible(z int, visible bool) {
	if l, exists := d.overlays[z]; exists && l.visible != visible {
		l.visible = visible
		d.overlaysChanged = true
	}
}

// Overlays returns the z values of all overlays in draw order.
func (d *Display) Overlays() []int {
	if d.overlayOrder == nil {
		d.overlayOrder = make([]int, 0, len(d.overlays))
		for z := range d.overlays {
			d.overlayOrder = append(d.overlayOrder, z)
		}
		slices.Sort(d.overlayOrder)
	}
	return slices.Clone(d.overlayOrder)
}

// updateOverlays runs every overlay in ascending z. A failing overlay is
// logged and treated as unchanged. It reports whether any visible overlay
// changed.
func (d *Display) updateOverlays(resized bool) (bool, error) {
	changed := d.overlaysChanged
	d.overlaysChanged = false
	b := d.bounds()
	for _, z := range d.Overlays() {
		l := d.overlays[z]
		if resized || l.img == nil {
			if err := l.dc.Resize(b.Dx(), b.Dy()); err != nil {
				return false, fmt.Errorf("stage: resize overlay z=%d: %w", z, err)
			}
			l.img = nil
		}
		l.dc.SetTransform(d.rootMatrix())
		ok, err := l.overlay.Update(l.dc)
		if err != nil {
			d.log.Warn("stage: overlay update failed", "z", z, "err", err)
			ok = false
		}
		if ok || l.img == nil {
			img, isRGBA := l.dc.Image().(*image.RGBA)
			if !isRGBA {
				return false, fmt.Errorf("stage: overlay z=%d: unexpected image type %T", z, l.dc.Image())
			}
			l.img = img
			if l.visible {
				changed = true
			}
		}
	}
	return changed, nil
}

// compositeOverlays draws the visible overlays over dst.
func (d *Display) compositeOverlays(dst *image.RGBA) {
	for _, z := range d.Overlays() {
		l := d.overlays[z]
		if !l.visible || l.img == nil {
			continue
		}
		draw.Draw(dst, dst.Bounds(), l.img, dst.Bounds().Min, draw.Over)
	}
}

func (d *Display) closeOverlays() {
	for z, l := range d.overlays {
		_ = l.dc.Close()
		delete(d.overlays, z)
	}
	d.overlayOrder = nil
}
