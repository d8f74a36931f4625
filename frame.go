package stage

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"
)

// Phase is the stage of the frame pipeline a display is in.
type Phase uint8

// Frame phases in execution order.
const (
	PhaseIdle Phase = iota
	PhaseSyncing
	PhaseDisposingStaleInstances
	PhaseStitching
	PhaseUpdatingTransformsAndVisibility
	PhaseDisposingStaleDrawables
	PhaseRepainting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSyncing:
		return "syncing"
	case PhaseDisposingStaleInstances:
		return "disposing stale instances"
	case PhaseStitching:
		return "stitching"
	case PhaseUpdatingTransformsAndVisibility:
		return "updating transforms and visibility"
	case PhaseDisposingStaleDrawables:
		return "disposing stale drawables"
	case PhaseRepainting:
		return "repainting"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// Phase returns the current phase. It is PhaseIdle between frames and stays
// at the failing phase after a frame failed.
func (d *Display) Phase() Phase { return d.phase }

// Failure returns the error that poisoned the display, or nil.
func (d *Display) Failure() error { return d.failure }

// UpdateDisplay runs one frame: it synchronizes the node tree, restitches
// blocks around every change, updates transforms and visibility, disposes
// stale objects and repaints dirty blocks.
//
// Calling UpdateDisplay from inside a frame (from a painter, a listener or
// an overlay) returns ErrFrameInProgress. A frame that returns an error or
// panics leaves the display poisoned; every later call returns an error
// wrapping ErrPreviousFrameFailed.
func (d *Display) UpdateDisplay() error {
	if d.disposed {
		return ErrDisposed
	}
	if d.failure != nil {
		return fmt.Errorf("%w: %w", ErrPreviousFrameFailed, d.failure)
	}
	if d.phase != PhaseIdle {
		return ErrFrameInProgress
	}

	start := time.Now()
	d.frame++
	d.stats = FrameStats{Frame: d.frame}

	defer func() {
		if r := recover(); r != nil {
			d.failure = fmt.Errorf("panic during %s: %v", d.phase, r)
			d.log.Error("stage: frame panicked", "phase", d.phase.String(), "panic", r)
			panic(r)
		}
	}()
	if err := d.runFrame(); err != nil {
		d.failure = err
		d.log.Error("stage: frame failed", "phase", d.phase.String(), "err", err)
		return err
	}
	d.phase = PhaseIdle

	d.stats.Duration = time.Since(start)
	d.last = d.stats
	d.log.Debug("stage: frame", "stats", d.last.String())
	if d.opts.frameHook != nil {
		d.opts.frameHook(d.last)
	}
	return nil
}

// Frame runs the step callback registered with OnStep, then one frame.
func (d *Display) Frame(dt time.Duration) error {
	if d.onStep != nil {
		d.onStep(dt)
	}
	return d.UpdateDisplay()
}

// Animate runs frames every interval until ctx is done or a frame fails.
// Cancellation is only observed between frames. It returns ctx.Err() on
// cancellation.
func (d *Display) Animate(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	prev := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			if err := d.Frame(now.Sub(prev)); err != nil {
				return err
			}
			prev = now
		}
	}
}

func (d *Display) runFrame() error {
	d.phase = PhaseSyncing
	dprChanged := d.applyPendingDPR()
	if d.rootInstance == nil {
		d.rootInstance = d.newInstance(d.root, nil)
	}
	l := newLinker(d.rootBB)
	if err := d.rootInstance.sync(l, 0); err != nil {
		return err
	}
	l.finish()

	d.phase = PhaseDisposingStaleInstances
	for _, in := range d.instancesToDispose.drain() {
		in.dispose()
	}

	d.phase = PhaseStitching
	d.stitch()

	d.phase = PhaseUpdatingTransformsAndVisibility
	d.updateTransforms()
	d.updateVisibility()

	d.phase = PhaseDisposingStaleDrawables
	for _, bb := range d.backbonesToDispose.drain() {
		bb.teardown()
	}
	for _, dr := range d.drawablesToDispose.drain() {
		if dr.disposed {
			continue
		}
		d.assertf(dr.bb == nil, "superseded drawable %s is still linked", dr.id)
		dr.dispose()
	}

	d.phase = PhaseRepainting
	if err := d.repaint(dprChanged); err != nil {
		return err
	}
	if d.opts.assertions {
		if err := d.Audit(); err != nil {
			panic(err)
		}
	}
	return nil
}

// applyPendingDPR installs a scheduled pixel ratio. The root transform and
// every shared raster depend on it.
func (d *Display) applyPendingDPR() bool {
	if d.pendingDPR <= 0 {
		return false
	}
	d.dpr = d.pendingDPR
	d.pendingDPR = 0
	if d.rootInstance != nil && !d.rootInstance.stub {
		d.markTransformRootDirty(d.rootInstance, false)
	}
	for _, c := range d.shared {
		c.dirty = true
	}
	return true
}

// applyPendingSize installs a scheduled size and resizes every block
// surface. It reports whether the output size changed.
func (d *Display) applyPendingSize(dprChanged bool) (bool, error) {
	if d.sizePending {
		d.sizePending = false
		if d.pendingWidth != d.width || d.pendingHeight != d.height {
			d.width, d.height = d.pendingWidth, d.pendingHeight
			dprChanged = true
		}
	}
	if !dprChanged {
		return false, nil
	}
	b := d.bounds()
	for bb := range d.backbones {
		for _, blk := range bb.blocks() {
			if blk.surface == nil {
				continue
			}
			if err := blk.surface.Resize(b.Dx(), b.Dy()); err != nil {
				return false, fmt.Errorf("stage: resize %s: %w", blk, err)
			}
		}
	}
	d.drawables.each(func(dr *Drawable) { dr.markDirty() })
	d.damage.invalidateAll()
	return true, nil
}

// repaint brings every dirty block up to date, composites the output and
// finalizes the frame.
func (d *Display) repaint(dprChanged bool) error {
	resized, err := d.applyPendingSize(dprChanged)
	if err != nil {
		return err
	}
	for _, c := range d.shared {
		if c.dirty {
			if err := c.repaint(); err != nil {
				return err
			}
		}
	}
	if err := d.rootBB.repaint(); err != nil {
		return err
	}

	d.updateCursor()
	if d.backgroundDiff {
		d.backgroundDiff = false
		d.damage.invalidateAll()
	}
	if resized && d.onResize != nil {
		d.onResize(d.width, d.height)
	}
	overlaysChanged, err := d.updateOverlays(resized)
	if err != nil {
		return err
	}
	if overlaysChanged {
		d.damage.invalidateAll()
	}
	d.composeOutput()

	d.lastDamage = d.damage.snapshot()
	d.stats.FullRedraw = d.damage.fullRedraw
	d.stats.DamageRects = len(d.damage.dirtyRects)
	d.damage.reset()

	for _, dr := range d.reduceRefs.drain() {
		if !dr.disposed && dr.bb == nil {
			dr.reduceReferences()
		}
	}
	return nil
}

// updateCursor resolves the cursor and reports a change.
func (d *Display) updateCursor() {
	c := d.cursorOverride
	if c == "" {
		if cr, ok := d.root.(Cursorer); ok {
			c = cr.Cursor()
		}
	}
	if c == d.cursor {
		return
	}
	d.cursor = c
	if d.onCursor != nil {
		d.onCursor(c)
	}
}

// composeOutput redraws the damaged regions of the output from the
// background, the root layer and the overlays.
func (d *Display) composeOutput() {
	full := d.bounds()
	if d.output == nil || d.output.Bounds() != full {
		d.output = image.NewRGBA(full)
		d.damage.invalidateAll()
	}
	if d.damage.empty() {
		return
	}
	bg := image.NewUniform(d.background)
	for _, r := range d.damage.rects(full) {
		dst, ok := d.output.SubImage(r).(*image.RGBA)
		if !ok {
			continue
		}
		draw.Draw(dst, r, bg, image.Point{}, draw.Src)
		if layer := d.rootBB.layer; layer != nil {
			draw.Draw(dst, r, layer, r.Min, draw.Over)
		}
		d.compositeOverlays(dst)
	}
}
