package stage

import (
	"cmp"
	"slices"

	"github.com/gogpu/gg"
)

// TransformListener is called when an instance of a watched node gets a new
// world transform. It runs inside the frame: triggering another frame from
// it fails with ErrFrameInProgress.
type TransformListener func(in *Instance, world gg.Matrix)

type transformListener struct {
	fn TransformListener
}

// AddTransformListener registers fn for every trail of n. The returned
// function removes the listener.
func (d *Display) AddTransformListener(n Node, fn TransformListener) (remove func()) {
	l := &transformListener{fn: fn}
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		list := d.listeners[n]
		for i, x := range list {
			if x == l {
				list = slices.Delete(slices.Clone(list), i, i+1)
				break
			}
		}
		if len(list) == 0 {
			delete(d.listeners, n)
			return
		}
		d.listeners[n] = list
	}
}

// rootMatrix maps the root node's parent space (CSS pixels) to device
// pixels.
func (d *Display) rootMatrix() gg.Matrix {
	return gg.Scale(d.dpr, d.dpr)
}

// updateTransforms drains both dirty transform root queues and recomputes
// world transforms below each root, shallowest first, so every instance is
// computed once from its final parent transform.
func (d *Display) updateTransforms() {
	roots := slices.Concat(d.transformRoots[0].drain(), d.transformRoots[1].drain())
	slices.SortStableFunc(roots, func(a, b *Instance) int {
		return cmp.Compare(a.depth, b.depth)
	})
	for _, in := range roots {
		if in.disposed || in.transformStamp == d.frame {
			continue
		}
		parent := d.rootMatrix()
		if in.parent != nil {
			parent = in.parent.world
		}
		in.updateWorld(parent)
	}
}

// updateWorld recomputes the world transform of in and, when it changed,
// of its descendants. Listeners of the node are notified of the new value.
func (in *Instance) updateWorld(parent gg.Matrix) {
	d := in.display
	in.transformStamp = d.frame
	in.relative = in.node.Transform()
	w := parent.Multiply(in.relative)
	if in.worldValid && matrixEqual(w, in.world) {
		return
	}
	in.world = w
	in.worldValid = true
	d.stats.TransformsUpdated++
	for _, dr := range in.drawableList() {
		dr.markDirty()
	}
	if list := d.listeners[in.node]; len(list) > 0 {
		for _, l := range slices.Clone(list) {
			l.fn(in, w)
		}
	}
	for _, c := range in.children {
		c.updateWorld(w)
	}
}
