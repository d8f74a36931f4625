package stage

// stitch reassigns drawables to blocks around every change recorded since
// the previous frame. Each window is independent, so the worklists are
// drained in any order; stamps keep a drawable from being processed twice.
func (d *Display) stitch() {
	for _, dr := range d.blockChanges.drain() {
		if dr.disposed || dr.bb == nil || dr.bb.disposed {
			continue
		}
		dr.bb.stitchAround(dr)
	}
	for _, bb := range d.linksToUpdate.drain() {
		bb.linksQueued = false
		if bb.disposed {
			continue
		}
		for _, ci := range bb.intervals {
			for _, id := range [2]DrawableID{ci.before, ci.after} {
				if dr := d.drawables.get(id); dr != nil && dr.bb == bb {
					bb.stitchAround(dr)
				}
			}
			d.markChangeIntervalForDisposal(ci)
		}
		bb.intervals = bb.intervals[:0]
		bb.orderDirty = true
	}
	for _, b := range d.blocksToDispose.drain() {
		if b.count == 0 {
			b.dispose()
		}
	}
	for _, ci := range d.intervalsToRelease.drain() {
		ci.release()
	}
}

// stitchAround restitches the window of paint order containing anchor.
//
// The window starts after the nearest assigned drawable before anchor, whose
// block seeds the current run. Walking forward, a drawable joins the
// current run when renderers match, otherwise it starts a new run that
// reuses its own block, adopts an adjacent one, or allocates a fresh one.
// A block broken by a foreign run is split; adjacent same-renderer blocks
// are merged, smaller into larger. The walk ends at the first untouched
// block boundary after anchor. Members of the current block are walked too:
// a run spliced into the middle of its old block leaves unassigned
// drawables between the block's ends.
func (bb *backbone) stitchAround(anchor *Drawable) {
	d := bb.display
	if anchor.stitchStamp == d.frame {
		return
	}
	a := &d.drawables
	touched := d.touched
	clear(touched)

	s := anchor
	for {
		p := a.get(s.prev)
		if p == nil || p.block != nil {
			break
		}
		s = p
	}
	var cur *Block
	if p := a.get(s.prev); p != nil {
		cur = p.block
		touched[cur] = struct{}{}
	}

	passed := false
	for x := s; x != nil; x = a.get(x.next) {
		xb := x.block
		_, xbTouched := touched[xb]
		cleanStart := xb != nil && !xbTouched && xb.first == x.id
		if passed && xb != cur && cleanStart && (cur == nil || x.renderer != cur.renderer) {
			break
		}

		switch {
		case cur != nil && cur.renderer == x.renderer:
			if xb == cur {
				break
			}
			if cleanStart {
				d.stats.BlocksMerged++
				touched[xb] = struct{}{}
				if xb.count > cur.count {
					bb.mergeInto(cur, xb)
					cur = xb
					touched[cur] = struct{}{}
					break
				}
			}
			cur.adopt(x)
		default:
			switch {
			case cleanStart:
				cur = xb
			case xb == nil && bb.canAdoptNext(x, touched):
				cur = a.get(x.next).block
				cur.adopt(x)
			default:
				if xb != nil {
					d.stats.BlocksSplit++
				}
				cur = d.newBlock(bb, x.renderer)
				cur.adopt(x)
			}
			touched[cur] = struct{}{}
		}

		x.stitchStamp = d.frame
		if x == anchor {
			passed = true
		}
	}
}

// canAdoptNext reports whether the unassigned x can join the untouched
// block that starts right after it.
func (bb *backbone) canAdoptNext(x *Drawable, touched map[*Block]struct{}) bool {
	n := bb.display.drawables.get(x.next)
	if n == nil || n.block == nil || n.renderer != x.renderer || n.block.first != n.id {
		return false
	}
	_, ok := touched[n.block]
	return !ok
}

// mergeInto moves every drawable of src into dst. src must end right before
// dst starts.
func (bb *backbone) mergeInto(src, dst *Block) {
	a := &bb.display.drawables
	for src.count > 0 {
		dr := a.get(src.last)
		dst.adopt(dr)
	}
}
