package stage

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
)

// maxSharedDepth bounds the subtree walk of a shared cache.
const maxSharedDepth = 256

// sharedCache is a raster of a node subtree shared by every trail that
// shows the node with SharedCache set. It observes each node of the
// subtree and is repainted once per frame when any of them changed.
type sharedCache struct {
	display *Display
	node    Node
	refs    []*Drawable

	observed []Node
	dirty    bool

	img *image.RGBA
	// bounds is the painted area in the node's local coordinates.
	bounds Rect
	// toLocal maps image pixels to the node's local coordinates.
	toLocal gg.Matrix
}

// acquireShared returns the cache of n, creating it on first use, and
// records dr as a user.
func (d *Display) acquireShared(n Node, dr *Drawable) *sharedCache {
	c, ok := d.shared[n]
	if !ok {
		c = &sharedCache{
			display: d,
			node:    n,
			dirty:   true,
			bounds:  EmptyRect(),
			toLocal: gg.Identity(),
		}
		d.shared[n] = c
		d.stats.SharedCachesCreated++
	}
	c.refs = append(c.refs, dr)
	return c
}

// unref drops dr. The last user disposes the cache.
func (c *sharedCache) unref(dr *Drawable) {
	for i, r := range c.refs {
		if r == dr {
			c.refs = append(c.refs[:i], c.refs[i+1:]...)
			break
		}
	}
	if len(c.refs) > 0 {
		return
	}
	c.unobserve()
	c.img = nil
	delete(c.display.shared, c.node)
}

// NodeChanged marks the cache stale. Moving the cached root itself does not
// change the raster.
func (c *sharedCache) NodeChanged(n Node, ch Change) {
	if n == c.node && ch&^ChangeTransform == 0 {
		return
	}
	c.dirty = true
}

func (c *sharedCache) unobserve() {
	for _, n := range c.observed {
		n.RemoveObserver(c)
	}
	c.observed = c.observed[:0]
}

type sharedItem struct {
	painter Painter
	m       gg.Matrix
}

// collect walks the visible subtree below c.node, in paint order.
func (c *sharedCache) collect(n Node, m gg.Matrix, depth int, items []sharedItem) ([]sharedItem, error) {
	if depth > maxSharedDepth {
		return items, fmt.Errorf("%w: shared cache of %s deeper than %d", ErrNodeCycle, nodeLabel(c.node), maxSharedDepth)
	}
	n.AddObserver(c)
	c.observed = append(c.observed, n)
	if !n.Visible() {
		return items, nil
	}
	if p := n.Painter(); p != nil {
		items = append(items, sharedItem{painter: p, m: m})
	}
	var err error
	for _, ch := range n.Children() {
		if ch == nil {
			continue
		}
		items, err = c.collect(ch, m.Multiply(ch.Transform()), depth+1, items)
		if err != nil {
			return items, err
		}
	}
	return items, nil
}

// repaint rasterizes the subtree at the display's pixel ratio and marks
// every user dirty.
func (c *sharedCache) repaint() error {
	d := c.display
	c.unobserve()
	items, err := c.collect(c.node, gg.Identity(), 0, nil)
	if err != nil {
		return err
	}
	bounds := EmptyRect()
	for _, it := range items {
		bounds = bounds.Union(it.painter.Bounds().Transform(it.m))
	}
	c.dirty = false
	for _, dr := range c.refs {
		dr.markContentDirty()
	}
	if bounds.IsEmpty() || !bounds.IsFinite() {
		c.img = nil
		c.bounds = EmptyRect()
		return nil
	}
	scale := d.dpr
	w := int(math.Ceil(bounds.Width() * scale))
	h := int(math.Ceil(bounds.Height() * scale))
	if w <= 0 || h <= 0 {
		c.img = nil
		c.bounds = EmptyRect()
		return nil
	}
	dc := gg.NewContext(w, h)
	defer func() { _ = dc.Close() }()
	base := gg.Scale(scale, scale).Multiply(gg.Translate(-bounds.MinX, -bounds.MinY))
	for _, it := range items {
		dc.SetTransform(base.Multiply(it.m))
		if err := it.painter.Paint(dc); err != nil {
			return fmt.Errorf("stage: shared cache of %s: %w", nodeLabel(c.node), err)
		}
	}
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return fmt.Errorf("stage: shared cache of %s: unexpected image type %T", nodeLabel(c.node), dc.Image())
	}
	c.img = img
	c.bounds = bounds
	c.toLocal = gg.Translate(bounds.MinX, bounds.MinY).Multiply(gg.Scale(1/scale, 1/scale))
	d.stats.SharedCachesRepainted++
	return nil
}
