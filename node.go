package stage

import (
	"image/color"

	"github.com/gogpu/gg"
)

// Node is an application-authored visual element.
//
// The display reads nodes once per frame and never mutates them. A node may
// be the child of several parents; every distinct path from the root (a
// Trail) gets its own Instance. Implementations must be comparable (pointer
// types are the norm) because nodes are matched by identity.
//
// See the node package for a ready-to-use implementation.
type Node interface {
	// Children returns the child nodes in paint order.
	Children() []Node

	// Transform returns the node's transform relative to its parent.
	Transform() gg.Matrix

	// Visible reports whether the node and its subtree are displayed.
	Visible() bool

	// Opacity returns the subtree opacity in [0, 1].
	Opacity() float64

	// Clip returns the clip rectangle in local coordinates, if any.
	Clip() (Rect, bool)

	// RendererHint returns the preferred renderers for the node and its
	// subtree. Zero inherits the parent's preference.
	RendererHint() Renderer

	// Isolated requests a separate compositing group for the subtree.
	Isolated() bool

	// SharedCache requests that the subtree is rasterized once and reused
	// by every trail that shows it.
	SharedCache() bool

	// Painter returns the node's own content, or nil if it draws nothing.
	Painter() Painter

	// AddObserver registers o to be told about mutations.
	AddObserver(o Observer)

	// RemoveObserver unregisters o.
	RemoveObserver(o Observer)
}

// Change describes what kind of mutation a node went through.
type Change uint16

// Change kinds. Observers receive one or more bits per notification.
const (
	ChangeChildren Change = 1 << iota
	ChangeTransform
	ChangeRenderer
	ChangeVisibility
	ChangeContent
	ChangeCompositing
)

// Observer is notified by nodes when they change. The display's instances
// are observers; they only record the change for the next frame.
type Observer interface {
	NodeChanged(n Node, c Change)
}

// Painter is the drawable content of a node.
type Painter interface {
	// Renderers returns the backends this content can be drawn with.
	Renderers() Renderer

	// Bounds returns the painted area in local coordinates.
	Bounds() Rect

	// Paint draws the content in local coordinates.
	Paint(c Canvas) error
}

// Canvas is the drawing surface handed to painters. *gg.Context satisfies
// it; vector backends provide recording implementations.
type Canvas interface {
	SetColor(c color.Color)
	SetLineWidth(width float64)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()
	DrawRectangle(x, y, w, h float64)
	DrawCircle(x, y, r float64)
	Fill() error
	Stroke() error
}

var _ Canvas = (*gg.Context)(nil)

// Cursorer is implemented by nodes that request a pointer cursor.
type Cursorer interface {
	Cursor() string
}

// Namer is implemented by nodes that have a display name for debug dumps.
type Namer interface {
	Name() string
}
