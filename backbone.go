package stage

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// backbone owns one paint-order list together with the blocks that batch
// it. The display has a root backbone; every instance with a group
// drawable owns a nested one whose layer the group drawable composites.
type backbone struct {
	display *Display
	host    *Drawable

	head, tail DrawableID
	count      int
	blockCount int

	intervals   []*ChangeInterval
	linksQueued bool

	order      []*Block
	orderDirty bool

	layer    *image.RGBA
	dirty    bool
	disposed bool
}

func newBackbone(d *Display, host *Drawable) *backbone {
	bb := &backbone{
		display:    d,
		host:       host,
		dirty:      true,
		orderDirty: true,
	}
	d.backbones[bb] = struct{}{}
	return bb
}

// markDirty flags the backbone for repaint and bubbles up through the
// hosting group drawable.
func (bb *backbone) markDirty() {
	if bb.disposed {
		return
	}
	bb.dirty = true
	if bb.host != nil && !bb.host.dirty {
		bb.host.markDirty()
	}
}

// nextOf returns the drawable following id, or the head for the zero id.
func (bb *backbone) nextOf(id DrawableID) DrawableID {
	if id.IsZero() {
		return bb.head
	}
	if dr := bb.display.drawables.get(id); dr != nil {
		return dr.next
	}
	return DrawableID{}
}

// removeRange unlinks the contiguous run [f, l]. The run keeps its internal
// links so it can be spliced back in as a whole.
func (bb *backbone) removeRange(f, l *Drawable) {
	d := bb.display
	a := &d.drawables
	d.assertf(f.bb == bb && l.bb == bb, "removing %s..%s from a foreign backbone", f.id, l.id)
	p, n := f.prev, l.next
	for dr := f; dr != nil; dr = a.get(dr.next) {
		if dr.block != nil {
			dr.block.release(dr)
		}
		dr.bb = nil
		bb.count--
		if dr == l {
			break
		}
	}
	if pd := a.get(p); pd != nil {
		pd.next = n
	} else {
		bb.head = n
	}
	if nd := a.get(n); nd != nil {
		nd.prev = p
	} else {
		bb.tail = p
	}
	f.prev = DrawableID{}
	l.next = DrawableID{}
	bb.recordInterval(p, n)
}

// insertRangeAfter links the detached run [f, l] after p, or at the head
// when p is zero. Inserted drawables are unassigned until stitching.
func (bb *backbone) insertRangeAfter(p DrawableID, f, l *Drawable) {
	d := bb.display
	a := &d.drawables
	n := bb.nextOf(p)
	for dr := f; dr != nil; dr = a.get(dr.next) {
		d.assertf(dr.bb == nil, "inserting linked drawable %s", dr.id)
		d.assertf(dr.block == nil, "inserting drawable %s that still has a block", dr.id)
		dr.bb = bb
		bb.count++
		dr.markDirty()
		if dr == l {
			break
		}
	}
	f.prev = p
	l.next = n
	if pd := a.get(p); pd != nil {
		pd.next = f.id
	} else {
		bb.head = f.id
	}
	if nd := a.get(n); nd != nil {
		nd.prev = l.id
	} else {
		bb.tail = l.id
	}
	d.markForBlockChange(f)
	bb.recordInterval(p, n)
}

func (bb *backbone) recordInterval(before, after DrawableID) {
	bb.intervals = append(bb.intervals, newChangeInterval(before, after))
	bb.orderDirty = true
	bb.markDirty()
	bb.display.markForLinksUpdate(bb)
}

// teardown detaches every remaining drawable as one intact run and
// disposes the blocks. Detached drawables stay owned by their instances.
func (bb *backbone) teardown() {
	if bb.disposed {
		return
	}
	d := bb.display
	a := &d.drawables
	for dr := a.get(bb.head); dr != nil; dr = a.get(dr.next) {
		if b := dr.block; b != nil {
			dr.block = nil
			b.count--
			if b.count == 0 {
				b.dispose()
			}
		}
		dr.bb = nil
	}
	bb.disposed = true
	bb.head, bb.tail = DrawableID{}, DrawableID{}
	bb.count = 0
	for _, ci := range bb.intervals {
		ci.release()
	}
	bb.intervals = nil
	bb.order = nil
	bb.layer = nil
	if bb.host != nil && bb.host.group == bb {
		bb.host.group = nil
	}
	bb.host = nil
	delete(d.backbones, bb)
}

// drawables returns the paint order of the backbone.
func (bb *backbone) drawables() []*Drawable {
	a := &bb.display.drawables
	out := make([]*Drawable, 0, bb.count)
	for dr := a.get(bb.head); dr != nil; dr = a.get(dr.next) {
		out = append(out, dr)
	}
	return out
}

// blocks returns the blocks of the backbone in paint order. Valid only
// after stitching.
func (bb *backbone) blocks() []*Block {
	if !bb.orderDirty {
		return bb.order
	}
	a := &bb.display.drawables
	bb.order = bb.order[:0]
	for dr := a.get(bb.head); dr != nil; dr = a.get(dr.next) {
		if dr.block == nil {
			continue
		}
		if n := len(bb.order); n == 0 || bb.order[n-1] != dr.block {
			bb.order = append(bb.order, dr.block)
		}
	}
	bb.orderDirty = false
	return bb.order
}

// contentBounds returns the device-space area painted by the backbone.
func (bb *backbone) contentBounds() Rect {
	r := EmptyRect()
	for _, b := range bb.blocks() {
		r = r.Union(b.painted)
	}
	return r
}

// repaint repaints dirty blocks, nested backbones first, and recomposites
// the layer.
func (bb *backbone) repaint() error {
	if !bb.dirty || bb.disposed {
		return nil
	}
	d := bb.display
	var run []*Drawable
	for _, b := range bb.blocks() {
		if !b.dirty {
			continue
		}
		run = b.run(run[:0])
		for _, dr := range run {
			if dr.role == RoleGroup && dr.group != nil && dr.group.dirty {
				if err := dr.group.repaint(); err != nil {
					return err
				}
			}
		}
		if err := b.repaint(run); err != nil {
			return err
		}
	}
	if bb.host == nil {
		bb.composite(d.damage.rects(d.bounds()))
	} else {
		bb.composite([]image.Rectangle{d.bounds()})
	}
	bb.dirty = false
	return nil
}

// composite redraws the layer inside rects from the block surfaces.
func (bb *backbone) composite(rects []image.Rectangle) {
	d := bb.display
	full := d.bounds()
	if bb.layer == nil || bb.layer.Bounds() != full {
		bb.layer = image.NewRGBA(full)
		rects = []image.Rectangle{full}
	}
	blocks := bb.blocks()
	for _, r := range rects {
		r = r.Intersect(full)
		if r.Empty() {
			continue
		}
		dst, ok := bb.layer.SubImage(r).(*image.RGBA)
		if !ok {
			continue
		}
		draw.Draw(dst, r, image.NewUniform(color.Transparent), image.Point{}, draw.Src)
		for _, b := range blocks {
			if b.surface != nil {
				b.surface.Composite(dst)
			}
		}
	}
}

// linker splices drawables into a backbone in paint order during sync.
// Drawables already in place are skipped over in O(1).
type linker struct {
	bb   *backbone
	last DrawableID
}

func newLinker(bb *backbone) *linker {
	return &linker{bb: bb}
}

func (l *linker) emit(dr *Drawable) {
	l.emitRange(dr, dr)
}

// emitRange places the run [f, last] right after the previously emitted
// drawable.
func (l *linker) emitRange(f, last *Drawable) {
	if f.bb == l.bb && l.bb.nextOf(l.last) == f.id {
		l.last = last.id
		return
	}
	if f.bb != nil {
		f.bb.removeRange(f, last)
	}
	l.bb.insertRangeAfter(l.last, f, last)
	l.last = last.id
}

// finish unlinks everything after the last emitted drawable.
func (l *linker) finish() {
	a := &l.bb.display.drawables
	if n := a.get(l.bb.nextOf(l.last)); n != nil {
		l.bb.removeRange(n, a.get(l.bb.tail))
	}
}
