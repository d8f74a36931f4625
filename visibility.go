package stage

import (
	"cmp"
	"slices"
)

// updateVisibility propagates visibility flags top-down from every queued
// root. Drawables of subtrees that just became hidden are queued to drop
// their retained elements at the end of the frame.
func (d *Display) updateVisibility() {
	roots := d.visibilityRoots.drain()
	slices.SortStableFunc(roots, func(a, b *Instance) int {
		return cmp.Compare(a.depth, b.depth)
	})
	for _, in := range roots {
		if in.disposed || in.visibilityStamp == d.frame {
			continue
		}
		visible, relative := true, true
		if p := in.parent; p != nil {
			visible = p.visible
			relative = p.relativeVisible || p.group != nil
		}
		in.propagateVisibility(visible, relative)
	}
}

func (in *Instance) propagateVisibility(parentVisible, parentRelative bool) {
	d := in.display
	in.visibilityStamp = d.frame
	was := in.visible
	in.visible = parentVisible && in.selfVisible
	in.relativeVisible = parentRelative && in.selfVisible
	if was && !in.visible {
		for _, dr := range in.drawableList() {
			d.markForReducedReferences(dr)
		}
	}
	childRelative := in.relativeVisible || in.group != nil
	for _, c := range in.children {
		c.propagateVisibility(in.visible, childRelative)
	}
}
