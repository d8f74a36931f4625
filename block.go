package stage

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Block is a contiguous, renderer-homogeneous run of drawables in the
// paint order of one backbone. A block holds back-references only:
// disposing a block never disposes its drawables.
type Block struct {
	id       uint64
	renderer Renderer
	bb       *backbone

	first, last DrawableID
	count       int

	surface  Surface
	dirty    bool
	disposed bool

	// painted is the device-space area covered at the last repaint.
	painted Rect
}

func (d *Display) newBlock(bb *backbone, r Renderer) *Block {
	d.nextBlockID++
	b := &Block{
		id:       d.nextBlockID,
		renderer: r,
		bb:       bb,
		dirty:    true,
		painted:  EmptyRect(),
	}
	bb.blockCount++
	bb.orderDirty = true
	d.stats.BlocksCreated++
	return b
}

// ID returns a display-unique block number.
func (b *Block) ID() uint64 { return b.id }

// Renderer returns the renderer every drawable of the block paints with.
func (b *Block) Renderer() Renderer { return b.renderer }

// Len returns the number of drawables owned by the block.
func (b *Block) Len() int { return b.count }

// Dirty reports whether the block will be repainted in the next frame.
func (b *Block) Dirty() bool { return b.dirty }

// Format returns the pixel format of the block surface, or
// TextureFormatUndefined before the first repaint.
func (b *Block) Format() gputypes.TextureFormat {
	if b.surface == nil {
		return gputypes.TextureFormatUndefined
	}
	return b.surface.Format()
}

// Surface returns the block's surface, or nil before the first repaint.
func (b *Block) Surface() Surface { return b.surface }

func (b *Block) String() string {
	return fmt.Sprintf("block#%d(%s, %d)", b.id, b.renderer, b.count)
}

// Drawables returns the run of the block in paint order.
func (b *Block) Drawables() []*Drawable {
	return b.run(nil)
}

// run appends the block's drawables in paint order to buf.
func (b *Block) run(buf []*Drawable) []*Drawable {
	if b.count == 0 {
		return buf
	}
	a := &b.bb.display.drawables
	for dr := a.get(b.first); dr != nil; dr = a.get(dr.next) {
		if dr.block == b {
			buf = append(buf, dr)
		}
		if dr.id == b.last {
			break
		}
	}
	return buf
}

// adopt moves dr from its current block into b.
func (b *Block) adopt(dr *Drawable) {
	if dr.block == b {
		return
	}
	d := b.bb.display
	if old := dr.block; old != nil {
		old.release(dr)
		d.stats.DrawablesReassigned++
	}
	if b.count == 0 {
		b.first, b.last = dr.id, dr.id
	} else {
		if b.last == dr.prev {
			b.last = dr.id
		}
		if b.first == dr.next {
			b.first = dr.id
		}
	}
	dr.block = b
	b.count++
	b.dirty = true
	dr.dirty = true
	b.bb.markDirty()
}

// release drops dr from b without touching the list. When the block
// empties it is queued for disposal; otherwise first/last are moved to the
// nearest remaining members.
func (b *Block) release(dr *Drawable) {
	d := b.bb.display
	d.assertf(dr.block == b, "drawable %s released from foreign %s", dr.id, b)
	dr.block = nil
	b.count--
	b.dirty = true
	b.bb.markDirty()
	if b.count == 0 {
		b.first, b.last = DrawableID{}, DrawableID{}
		d.markBlockForDisposal(b)
		return
	}
	a := &d.drawables
	if b.first == dr.id {
		b.first = DrawableID{}
		for n := a.get(dr.next); n != nil; n = a.get(n.next) {
			if n.block == b {
				b.first = n.id
				break
			}
		}
	}
	if b.last == dr.id {
		b.last = DrawableID{}
		for p := a.get(dr.prev); p != nil; p = a.get(p.prev) {
			if p.block == b {
				b.last = p.id
				break
			}
		}
	}
	d.assertf(!b.first.IsZero() && !b.last.IsZero(), "%s lost its ends", b)
}

// dispose releases the surface. The block must be empty.
func (b *Block) dispose() {
	if b.disposed {
		return
	}
	d := b.bb.display
	d.assertf(b.count == 0, "%s disposed with %d drawables", b, b.count)
	if b.surface != nil {
		b.surface.Dispose()
		b.surface = nil
	}
	if b.bb.host == nil {
		d.damage.invalidateRect(b.painted)
	}
	b.disposed = true
	b.bb.blockCount--
	b.bb.orderDirty = true
	b.bb.markDirty()
	d.stats.BlocksDisposed++
}

// repaint brings the block surface up to date with its run.
func (b *Block) repaint(run []*Drawable) error {
	d := b.bb.display
	if b.surface == nil {
		backend, ok := d.backends[b.renderer]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoBackend, b.renderer)
		}
		s, err := backend.NewSurface(d.surfaceConfig())
		if err != nil {
			return fmt.Errorf("stage: create %s surface: %w", b.renderer, err)
		}
		propagateLogger(s, d.log)
		b.surface = s
	}
	for _, dr := range run {
		if dr.dirty {
			dr.bounds = dr.computeBounds()
		}
	}
	if err := b.surface.Update(run); err != nil {
		return fmt.Errorf("stage: repaint %s: %w", b, err)
	}
	painted := EmptyRect()
	for _, dr := range run {
		if dr.dirty {
			d.stats.DrawablesRepainted++
			dr.dirty = false
			dr.contentDirty = false
		}
		painted = painted.Union(dr.bounds)
	}
	if b.bb.host == nil {
		d.damage.invalidateRect(b.painted.Union(painted))
	}
	b.painted = painted
	b.dirty = false
	d.stats.BlocksRepainted++
	return nil
}
