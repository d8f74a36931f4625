// Package node provides a mutable stage.Node implementation.
//
// A Node notifies its observers synchronously on every mutation. Displays
// only record the change and pick it up in their next frame, so a batch of
// mutations between frames costs one sync.
//
// Example:
//
//	root := node.New("root")
//	box := node.New("box", node.WithPainter(&node.Rect{Width: 40, Height: 20, Fill: color.Black}))
//	root.AddChild(box)
//	box.SetTransform(gg.Translate(10, 10))
package node

import (
	"slices"

	"github.com/gogpu/gg"

	"github.com/gogpu/stage"
)

// Node is a mutable visual element. The zero value is not usable; create
// nodes with New.
//
// Node is not safe for concurrent use.
type Node struct {
	name      string
	children  []stage.Node
	transform gg.Matrix
	visible   bool
	opacity   float64
	clip      stage.Rect
	hasClip   bool
	hint      stage.Renderer
	isolated  bool
	shared    bool
	painter   stage.Painter
	cursor    string

	observers []stage.Observer
}

var (
	_ stage.Node     = (*Node)(nil)
	_ stage.Cursorer = (*Node)(nil)
	_ stage.Namer    = (*Node)(nil)
)

// Option configures a Node at creation.
type Option func(*Node)

// WithPainter sets the node content.
func WithPainter(p stage.Painter) Option {
	return func(n *Node) { n.painter = p }
}

// WithTransform sets the transform relative to the parent.
func WithTransform(m gg.Matrix) Option {
	return func(n *Node) { n.transform = m }
}

// WithChildren sets the initial children.
func WithChildren(children ...stage.Node) Option {
	return func(n *Node) { n.children = append(n.children[:0], children...) }
}

// WithRendererHint sets the renderer preference of the subtree.
func WithRendererHint(r stage.Renderer) Option {
	return func(n *Node) { n.hint = r }
}

// WithOpacity sets the subtree opacity.
func WithOpacity(o float64) Option {
	return func(n *Node) { n.opacity = o }
}

// WithIsolation requests a separate compositing group.
func WithIsolation() Option {
	return func(n *Node) { n.isolated = true }
}

// WithSharedCache requests a shared subtree raster.
func WithSharedCache() Option {
	return func(n *Node) { n.shared = true }
}

// WithClip clips the subtree to r in local coordinates.
func WithClip(r stage.Rect) Option {
	return func(n *Node) { n.clip, n.hasClip = r, true }
}

// WithCursor sets the requested pointer cursor.
func WithCursor(name string) Option {
	return func(n *Node) { n.cursor = name }
}

// Hidden creates the node invisible.
func Hidden() Option {
	return func(n *Node) { n.visible = false }
}

// New creates a visible, opaque node with an identity transform.
func New(name string, opts ...Option) *Node {
	n := &Node{
		name:      name,
		transform: gg.Identity(),
		visible:   true,
		opacity:   1,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the debug name.
func (n *Node) Name() string { return n.name }

// Children returns a copy of the child list.
func (n *Node) Children() []stage.Node { return slices.Clone(n.children) }

// Transform returns the transform relative to the parent.
func (n *Node) Transform() gg.Matrix { return n.transform }

// Visible reports whether the subtree is shown.
func (n *Node) Visible() bool { return n.visible }

// Opacity returns the subtree opacity.
func (n *Node) Opacity() float64 { return n.opacity }

// Clip returns the clip rectangle, if set.
func (n *Node) Clip() (stage.Rect, bool) { return n.clip, n.hasClip }

// RendererHint returns the renderer preference.
func (n *Node) RendererHint() stage.Renderer { return n.hint }

// Isolated reports whether the subtree gets its own compositing group.
func (n *Node) Isolated() bool { return n.isolated }

// SharedCache reports whether the subtree is rasterized once and shared.
func (n *Node) SharedCache() bool { return n.shared }

// Painter returns the node content.
func (n *Node) Painter() stage.Painter { return n.painter }

// Cursor returns the requested pointer cursor.
func (n *Node) Cursor() string { return n.cursor }

// AddObserver registers o. Adding an observer twice has no effect.
func (n *Node) AddObserver(o stage.Observer) {
	if slices.Contains(n.observers, o) {
		return
	}
	n.observers = append(n.observers, o)
}

// RemoveObserver unregisters o.
func (n *Node) RemoveObserver(o stage.Observer) {
	if i := slices.Index(n.observers, o); i >= 0 {
		n.observers = slices.Delete(n.observers, i, i+1)
	}
}

// Observers returns the number of registered observers.
func (n *Node) Observers() int { return len(n.observers) }

func (n *Node) notify(c stage.Change) {
	// Observers may unregister themselves while being notified.
	for _, o := range slices.Clone(n.observers) {
		o.NodeChanged(n, c)
	}
}

// SetChildren replaces the child list.
func (n *Node) SetChildren(children ...stage.Node) {
	n.children = append(n.children[:0:0], children...)
	n.notify(stage.ChangeChildren)
}

// AddChild appends c.
func (n *Node) AddChild(c stage.Node) {
	n.children = append(n.children, c)
	n.notify(stage.ChangeChildren)
}

// InsertChild inserts c at index i. An out-of-range index appends.
func (n *Node) InsertChild(i int, c stage.Node) {
	if i < 0 || i > len(n.children) {
		i = len(n.children)
	}
	n.children = slices.Insert(n.children, i, c)
	n.notify(stage.ChangeChildren)
}

// RemoveChild removes the first occurrence of c. It reports whether c was
// a child.
func (n *Node) RemoveChild(c stage.Node) bool {
	i := slices.Index(n.children, c)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	n.notify(stage.ChangeChildren)
	return true
}

// MoveChild moves the child at index from to index to.
func (n *Node) MoveChild(from, to int) {
	if from < 0 || from >= len(n.children) || to < 0 || to >= len(n.children) || from == to {
		return
	}
	c := n.children[from]
	n.children = slices.Delete(n.children, from, from+1)
	n.children = slices.Insert(n.children, to, c)
	n.notify(stage.ChangeChildren)
}

// SetTransform sets the transform relative to the parent.
func (n *Node) SetTransform(m gg.Matrix) {
	n.transform = m
	n.notify(stage.ChangeTransform)
}

// SetVisible shows or hides the subtree.
func (n *Node) SetVisible(v bool) {
	if n.visible == v {
		return
	}
	n.visible = v
	n.notify(stage.ChangeVisibility)
}

// SetOpacity sets the subtree opacity.
func (n *Node) SetOpacity(o float64) {
	if n.opacity == o {
		return
	}
	n.opacity = o
	n.notify(stage.ChangeCompositing)
}

// SetClip clips the subtree to r in local coordinates.
func (n *Node) SetClip(r stage.Rect) {
	n.clip, n.hasClip = r, true
	n.notify(stage.ChangeCompositing)
}

// ClearClip removes the clip.
func (n *Node) ClearClip() {
	if !n.hasClip {
		return
	}
	n.clip, n.hasClip = stage.Rect{}, false
	n.notify(stage.ChangeCompositing)
}

// SetIsolated requests or drops a separate compositing group.
func (n *Node) SetIsolated(v bool) {
	if n.isolated == v {
		return
	}
	n.isolated = v
	n.notify(stage.ChangeCompositing)
}

// SetSharedCache requests or drops a shared subtree raster.
func (n *Node) SetSharedCache(v bool) {
	if n.shared == v {
		return
	}
	n.shared = v
	n.notify(stage.ChangeCompositing | stage.ChangeChildren)
}

// SetRendererHint sets the renderer preference of the subtree.
func (n *Node) SetRendererHint(r stage.Renderer) {
	if n.hint == r {
		return
	}
	n.hint = r
	n.notify(stage.ChangeRenderer)
}

// SetPainter replaces the node content.
func (n *Node) SetPainter(p stage.Painter) {
	n.painter = p
	n.notify(stage.ChangeContent | stage.ChangeRenderer)
}

// Invalidate reports that the painter's output changed.
func (n *Node) Invalidate() {
	n.notify(stage.ChangeContent)
}

// SetCursor sets the requested pointer cursor.
func (n *Node) SetCursor(name string) {
	n.cursor = name
	n.notify(stage.ChangeContent)
}
