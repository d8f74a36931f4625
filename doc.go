// Package stage keeps a retained node tree in sync with the drawables that
// paint it.
//
// # Overview
//
// A Display mirrors a tree of [Node] values. Every occurrence of a node
// (a trail from the root) gets an [Instance]; instances own the drawables
// that actually paint: one for the node's own content, one for a
// compositing group and one for a shared raster cache. Drawables are kept
// in paint order and grouped into blocks of consecutive drawables that
// share a renderer. A block owns one backend surface.
//
// Nodes notify the display when they change. The display only records the
// change; the next call to [Display.UpdateDisplay] resynchronizes the dirty
// parts of the tree, restitches the blocks around the changed ranges and
// repaints dirty blocks. An idle frame touches nothing.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/stage"
//	    "github.com/gogpu/stage/node"
//	    _ "github.com/gogpu/stage/backend/canvas"
//	)
//
//	root := node.New("root")
//	box := node.New("box", node.WithPainter(&node.Rect{Width: 40, Height: 20, Fill: color.Black}))
//	root.AddChild(box)
//
//	d, err := stage.New(root, stage.WithSize(320, 200))
//	if err != nil {
//	    return err
//	}
//	defer d.Dispose()
//
//	box.SetTransform(gg.Translate(10, 10))
//	if err := d.UpdateDisplay(); err != nil {
//	    return err
//	}
//	img := d.Image()
//
// # Renderers
//
// Backends register themselves for one [Renderer] bit on import, the way
// database/sql drivers do. A painter reports the renderers it can be drawn
// with; a node may carry a renderer hint that its subtree inherits. The
// display picks the first renderer of its preference order that the
// painter supports and the hint allows.
//
// Groups (opacity, clip, isolation) and shared caches are hosted by the
// dom renderer. Each group owns a nested paint order with its own blocks.
//
// # Frames
//
// A frame runs through fixed phases (see [Phase]). A frame that fails or
// panics leaves the display unusable: every later call returns
// [ErrPreviousFrameFailed]. Calling back into the display from a painter,
// listener or backend during a frame returns [ErrFrameInProgress].
//
// A Display is not safe for concurrent use. Drive it from one goroutine,
// for example with [Display.Animate].
//
// # Coordinate System
//
// Node transforms are gg matrices in CSS pixels. World transforms include
// the device pixel ratio, so backends paint in device pixels.
package stage
