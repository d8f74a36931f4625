package stage

// worklist is a per-frame queue drained once in a fixed phase. Items
// appended while the list is being drained land in the next drain.
type worklist[T any] struct {
	items []T
	spare []T
}

func (w *worklist[T]) push(v T) {
	w.items = append(w.items, v)
}

func (w *worklist[T]) len() int {
	return len(w.items)
}

// drain returns the queued items and resets the list. The returned slice is
// only valid until the next drain.
func (w *worklist[T]) drain() []T {
	out := w.items
	clear(w.spare)
	w.items = w.spare[:0]
	w.spare = out
	return out
}

// markForBlockChange queues dr for block reassignment in the stitching
// phase.
func (d *Display) markForBlockChange(dr *Drawable) {
	d.blockChanges.push(dr)
}

// markForDisposal queues a stale instance root. Its subtree is disposed in
// the DisposingStaleInstances phase.
func (d *Display) markForDisposal(in *Instance) {
	if in.queuedForDisposal {
		return
	}
	in.queuedForDisposal = true
	d.instancesToDispose.push(in)
}

// markDrawableForDisposal queues a superseded drawable. It is disposed in
// the DisposingStaleDrawables phase unless its instance went first.
func (d *Display) markDrawableForDisposal(dr *Drawable) {
	d.drawablesToDispose.push(dr)
}

func (d *Display) markBlockForDisposal(b *Block) {
	d.blocksToDispose.push(b)
}

func (d *Display) markBackboneForDisposal(bb *backbone) {
	d.backbonesToDispose.push(bb)
}

// markTransformRootDirty queues in for world transform recomputation.
// passThrough roots own no paint of their own; they are processed after the
// others.
func (d *Display) markTransformRootDirty(in *Instance, passThrough bool) {
	if passThrough {
		d.transformRoots[1].push(in)
	} else {
		d.transformRoots[0].push(in)
	}
}

// markForLinksUpdate queues bb because its paint order changed.
func (d *Display) markForLinksUpdate(bb *backbone) {
	if bb.linksQueued {
		return
	}
	bb.linksQueued = true
	d.linksToUpdate.push(bb)
}

// markChangeIntervalForDisposal queues ci to be returned to its pool at the
// end of stitching.
func (d *Display) markChangeIntervalForDisposal(ci *ChangeInterval) {
	d.intervalsToRelease.push(ci)
}

// markForReducedReferences queues dr to drop its retained element at the
// end of the frame.
func (d *Display) markForReducedReferences(dr *Drawable) {
	d.reduceRefs.push(dr)
}

// markVisibilityRoot queues in for top-down visibility propagation.
func (d *Display) markVisibilityRoot(in *Instance) {
	d.visibilityRoots.push(in)
}
