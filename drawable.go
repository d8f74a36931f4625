package stage

import (
	"image"

	"github.com/gogpu/gg"
)

// Role is the kind of paint primitive a drawable stands for.
type Role uint8

// Drawable roles.
const (
	// RoleSelf paints the instance's own Painter content.
	RoleSelf Role = iota

	// RoleGroup composites the instance's nested backbone with its opacity
	// and clip.
	RoleGroup

	// RoleSharedCache blits a raster of the node subtree that is shared by
	// every trail showing the node.
	RoleSharedCache

	// NumRoles is the number of roles, for per-role dispatch tables.
	NumRoles
)

func (r Role) String() string {
	switch r {
	case RoleSelf:
		return "self"
	case RoleGroup:
		return "group"
	case RoleSharedCache:
		return "shared"
	default:
		return "unknown"
	}
}

// hostRenderer is the renderer of group and shared-cache drawables.
const hostRenderer = RendererDOM

// Drawable is one renderer-specific paint primitive attached to exactly one
// Instance. Drawables of a backbone form a doubly-linked paint-order list
// through arena handles, and each linked drawable belongs to exactly one
// Block after stitching.
//
// Backends read drawables during Surface.Update; everything else is owned
// by the display.
type Drawable struct {
	id       DrawableID
	display  *Display
	role     Role
	renderer Renderer
	instance *Instance

	bb         *backbone
	prev, next DrawableID
	block      *Block

	dirty        bool
	contentDirty bool
	disposed     bool
	stitchStamp  uint64

	element any
	bounds  Rect

	// group is the nested backbone of a RoleGroup drawable.
	group *backbone
	// shared is the cache of a RoleSharedCache drawable.
	shared *sharedCache
}

func newDrawable(d *Display, in *Instance, role Role, r Renderer) *Drawable {
	dr := &Drawable{
		display:      d,
		role:         role,
		renderer:     r,
		instance:     in,
		dirty:        true,
		contentDirty: true,
		bounds:       EmptyRect(),
	}
	d.drawables.alloc(dr)
	d.stats.DrawablesCreated++
	return dr
}

// ID returns the arena handle of the drawable.
func (dr *Drawable) ID() DrawableID { return dr.id }

// Role returns the drawable's role.
func (dr *Drawable) Role() Role { return dr.role }

// Renderer returns the single renderer bit the drawable paints with.
func (dr *Drawable) Renderer() Renderer { return dr.renderer }

// Instance returns the instance the drawable is attached to.
func (dr *Drawable) Instance() *Instance { return dr.instance }

// Node returns the node of the owning instance.
func (dr *Drawable) Node() Node { return dr.instance.node }

// Block returns the owning block, or nil if the drawable is unassigned.
func (dr *Drawable) Block() *Block { return dr.block }

// Dirty reports whether the drawable changed since the last repaint.
func (dr *Drawable) Dirty() bool { return dr.dirty }

// ContentDirty reports whether the painted content changed since the last
// repaint, as opposed to only its placement. Retained backends re-record
// their element only when it is set.
func (dr *Drawable) ContentDirty() bool { return dr.contentDirty }

// Disposed reports whether the drawable was disposed.
func (dr *Drawable) Disposed() bool { return dr.disposed }

// Element returns the backend state retained for the drawable.
func (dr *Drawable) Element() any { return dr.element }

// SetElement stores backend state for the drawable. A previous element that
// implements ElementReleaser is released.
func (dr *Drawable) SetElement(e any) {
	if old, ok := dr.element.(ElementReleaser); ok && old != e {
		old.Release()
	}
	dr.element = e
}

// Painter returns the content of a RoleSelf drawable.
func (dr *Drawable) Painter() Painter {
	if dr.role != RoleSelf {
		return nil
	}
	return dr.instance.painter
}

// World returns the transform from the instance's local coordinates to
// device pixels.
func (dr *Drawable) World() gg.Matrix { return dr.instance.world }

// Bounds returns the device-space bounds the drawable covered at its last
// paint.
func (dr *Drawable) Bounds() Rect { return dr.bounds }

// Opacity returns the opacity applied to a RoleGroup drawable.
func (dr *Drawable) Opacity() float64 {
	if dr.role != RoleGroup {
		return 1
	}
	return clampOpacity(dr.instance.node.Opacity())
}

// Clip returns the device-space clip rectangle of a RoleGroup drawable.
func (dr *Drawable) Clip() (image.Rectangle, bool) {
	if dr.role != RoleGroup {
		return image.Rectangle{}, false
	}
	r, ok := dr.instance.node.Clip()
	if !ok {
		return image.Rectangle{}, false
	}
	return r.Transform(dr.instance.world).Pixels(), true
}

// GroupLayer returns the composited nested backbone of a RoleGroup
// drawable, in device pixels.
func (dr *Drawable) GroupLayer() *image.RGBA {
	if dr.group == nil {
		return nil
	}
	return dr.group.layer
}

// SharedImage returns the cached raster of a RoleSharedCache drawable and
// the transform from its pixel coordinates to device pixels.
func (dr *Drawable) SharedImage() (*image.RGBA, gg.Matrix) {
	if dr.shared == nil || dr.shared.img == nil {
		return nil, gg.Identity()
	}
	return dr.shared.img, dr.instance.world.Multiply(dr.shared.toLocal)
}

// computeBounds returns the current device-space bounds of the drawable.
func (dr *Drawable) computeBounds() Rect {
	switch dr.role {
	case RoleSelf:
		if dr.instance.painter == nil {
			return EmptyRect()
		}
		return dr.instance.painter.Bounds().Transform(dr.instance.world)
	case RoleGroup:
		if dr.group == nil {
			return EmptyRect()
		}
		b := dr.group.contentBounds()
		if clip, ok := dr.Clip(); ok {
			b = b.Intersect(Rect{
				MinX: float64(clip.Min.X), MinY: float64(clip.Min.Y),
				MaxX: float64(clip.Max.X), MaxY: float64(clip.Max.Y),
			})
		}
		return b
	case RoleSharedCache:
		if dr.shared == nil {
			return EmptyRect()
		}
		return dr.shared.bounds.Transform(dr.instance.world)
	}
	return EmptyRect()
}

// markDirty flags the drawable for repaint and propagates the flag to its
// block, its backbone and the group drawable hosting that backbone.
func (dr *Drawable) markDirty() {
	dr.dirty = true
	if dr.block != nil {
		dr.block.dirty = true
	}
	if dr.bb != nil {
		dr.bb.markDirty()
	}
}

func (dr *Drawable) markContentDirty() {
	dr.contentDirty = true
	dr.markDirty()
}

// reduceReferences drops the retained backend element. The drawable keeps
// its place in the instance so it can be shown again.
func (dr *Drawable) reduceReferences() {
	if dr.element == nil {
		return
	}
	dr.SetElement(nil)
	dr.dirty = true
	dr.contentDirty = true
}

// dispose releases the drawable. The drawable must already be unlinked.
func (dr *Drawable) dispose() {
	d := dr.display
	d.assertf(!dr.disposed, "drawable %s disposed twice", dr.id)
	if dr.disposed {
		return
	}
	d.assertf(dr.bb == nil, "drawable %s disposed while linked", dr.id)
	if dr.bb != nil {
		dr.bb.removeRange(dr, dr)
	}
	if dr.group != nil {
		dr.group.host = nil
		dr.group = nil
	}
	if dr.shared != nil {
		dr.shared.unref(dr)
		dr.shared = nil
	}
	dr.SetElement(nil)
	dr.disposed = true
	d.drawables.release(dr.id)
	d.stats.DrawablesDisposed++
}

func clampOpacity(o float64) float64 {
	switch {
	case o < 0:
		return 0
	case o > 1:
		return 1
	}
	return o
}
