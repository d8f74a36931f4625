package stage

import (
	"fmt"

	"github.com/gogpu/gg"
)

// allChanges is the pending change set of a fresh stub.
const allChanges = ChangeChildren | ChangeTransform | ChangeRenderer |
	ChangeVisibility | ChangeContent | ChangeCompositing

// Instance is the synchronization record of one node occurrence, identified
// by the node and its Trail from the display root. Instances persist across
// frames and own their drawables and child instances.
//
// Instances observe their node. Notifications only record the change and
// mark the path to the root dirty; all work happens in the next frame.
type Instance struct {
	display  *Display
	node     Node
	parent   *Instance
	children []*Instance
	depth    int

	stub              bool
	observing         bool
	disposed          bool
	queuedForDisposal bool

	painter  Painter
	self     *Drawable
	group    *Drawable
	sharedDr *Drawable
	own      *backbone
	dropped  *backbone

	rangeFirst, rangeLast DrawableID

	relative, world gg.Matrix
	worldValid      bool
	transformStamp  uint64

	selfVisible     bool
	relativeVisible bool
	visible         bool
	visibilityStamp uint64
	fittable        bool

	// inherited is the renderer preference passed down at the last sync.
	inherited Renderer

	subtreeDirty bool
	pending      Change
}

func (d *Display) newInstance(n Node, parent *Instance) *Instance {
	in := &Instance{
		display:      d,
		node:         n,
		parent:       parent,
		stub:         true,
		relative:     gg.Identity(),
		world:        gg.Identity(),
		subtreeDirty: true,
		pending:      allChanges,
	}
	if parent != nil {
		in.depth = parent.depth + 1
	}
	d.byNode[n] = append(d.byNode[n], in)
	d.liveInstances++
	d.stats.InstancesCreated++
	return in
}

// initStub promotes a stub to a synchronized instance.
func (in *Instance) initStub() {
	in.stub = false
	in.node.AddObserver(in)
	in.observing = true
	in.display.markTransformRootDirty(in, false)
	in.display.markVisibilityRoot(in)
}

// NodeChanged records a mutation of the instance's node for the next frame.
func (in *Instance) NodeChanged(_ Node, c Change) {
	if in.disposed {
		return
	}
	in.pending |= c
	in.markSubtreeDirty()
}

// markSubtreeDirty flags the instance and every ancestor for re-sync.
func (in *Instance) markSubtreeDirty() {
	for p := in; p != nil; p = p.parent {
		p.subtreeDirty = true
	}
}

// Node returns the node the instance synchronizes.
func (in *Instance) Node() Node { return in.node }

// Parent returns the parent instance, or nil for the root.
func (in *Instance) Parent() *Instance { return in.parent }

// Children returns the child instances in paint order.
func (in *Instance) Children() []*Instance {
	out := make([]*Instance, len(in.children))
	copy(out, in.children)
	return out
}

// Depth returns the number of ancestors.
func (in *Instance) Depth() int { return in.depth }

// Trail returns the nodes from the display root down to this instance's
// node.
func (in *Instance) Trail() []Node {
	out := make([]Node, in.depth+1)
	for p := in; p != nil; p = p.parent {
		out[p.depth] = p.node
	}
	return out
}

// World returns the transform from the node's local coordinates to device
// pixels as of the last frame.
func (in *Instance) World() gg.Matrix { return in.world }

// Relative returns the node transform read at the last frame.
func (in *Instance) Relative() gg.Matrix { return in.relative }

// Visible reports whether the instance and all its ancestors are visible.
func (in *Instance) Visible() bool { return in.visible }

// SelfVisible reports the node's own visibility as of the last frame.
func (in *Instance) SelfVisible() bool { return in.selfVisible }

// RelativeVisible reports visibility up to the nearest ancestor group.
func (in *Instance) RelativeVisible() bool { return in.relativeVisible }

// Fittable reports whether the painted content has finite, non-empty
// bounds.
func (in *Instance) Fittable() bool { return in.fittable }

// SelfDrawable returns the drawable painting the node's own content.
func (in *Instance) SelfDrawable() *Drawable { return in.self }

// GroupDrawable returns the drawable compositing the isolated subtree.
func (in *Instance) GroupDrawable() *Drawable { return in.group }

// SharedCacheDrawable returns the drawable blitting the shared subtree
// raster.
func (in *Instance) SharedCacheDrawable() *Drawable { return in.sharedDr }

// Disposed reports whether the instance was disposed.
func (in *Instance) Disposed() bool { return in.disposed }

// Stub reports whether the instance has not been synchronized yet.
func (in *Instance) Stub() bool { return in.stub }

// SubtreeDirty reports whether the instance or a descendant changed since
// the last frame.
func (in *Instance) SubtreeDirty() bool { return in.subtreeDirty }

func (in *Instance) String() string {
	return fmt.Sprintf("instance(%s, depth %d)", nodeLabel(in.node), in.depth)
}

// drawableList returns the drawables owned by the instance.
func (in *Instance) drawableList() []*Drawable {
	out := make([]*Drawable, 0, 3)
	for _, dr := range [3]*Drawable{in.group, in.self, in.sharedDr} {
		if dr != nil {
			out = append(out, dr)
		}
	}
	return out
}

// hasAncestorNode reports whether n is the node of in or of an ancestor.
func (in *Instance) hasAncestorNode(n Node) bool {
	for p := in; p != nil; p = p.parent {
		if p.node == n {
			return true
		}
	}
	return false
}

// dispose disposes the instance, its descendants and all their drawables.
// The nested backbone goes first so descendant drawables are detached
// without recording change intervals.
func (in *Instance) dispose() {
	if in.disposed {
		return
	}
	d := in.display
	if in.own != nil {
		in.own.teardown()
		in.own = nil
	}
	if in.dropped != nil {
		in.dropped.teardown()
		in.dropped = nil
	}
	for _, c := range in.children {
		c.dispose()
	}
	in.children = nil
	for _, dr := range in.drawableList() {
		if !dr.disposed {
			dr.dispose()
		}
	}
	in.self, in.group, in.sharedDr = nil, nil, nil
	in.painter = nil
	if in.observing {
		in.node.RemoveObserver(in)
		in.observing = false
	}
	d.unindex(in)
	in.disposed = true
	d.liveInstances--
	d.stats.InstancesDisposed++
}

// nodeLabel names a node for errors and dumps.
func nodeLabel(n Node) string {
	if nm, ok := n.(Namer); ok && nm.Name() != "" {
		return nm.Name()
	}
	return fmt.Sprintf("%T@%p", n, n)
}
