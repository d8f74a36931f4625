package stage

import (
	"fmt"

	"github.com/gogpu/gg"
)

// RootInstance returns the instance of the root node, or nil before the
// first frame.
func (d *Display) RootInstance() *Instance { return d.rootInstance }

// Drawables returns the paint order of the root backbone. Group drawables
// appear once; their nested drawables are reached with
// Drawable.GroupDrawables.
func (d *Display) Drawables() []*Drawable {
	return d.rootBB.drawables()
}

// PaintOrder returns every linked drawable in paint order with nested
// backbones expanded right after their group drawable.
func (d *Display) PaintOrder() []*Drawable {
	return appendPaintOrder(nil, d.rootBB)
}

func appendPaintOrder(out []*Drawable, bb *backbone) []*Drawable {
	a := &bb.display.drawables
	for dr := a.get(bb.head); dr != nil; dr = a.get(dr.next) {
		out = append(out, dr)
		if dr.role == RoleGroup && dr.group != nil {
			out = appendPaintOrder(out, dr.group)
		}
	}
	return out
}

// GroupDrawables returns the nested paint order of a RoleGroup drawable.
func (dr *Drawable) GroupDrawables() []*Drawable {
	if dr.group == nil {
		return nil
	}
	return dr.group.drawables()
}

// GroupBlocks returns the blocks of the nested backbone of a RoleGroup
// drawable.
func (dr *Drawable) GroupBlocks() []*Block {
	if dr.group == nil {
		return nil
	}
	return append([]*Block(nil), dr.group.blocks()...)
}

// Blocks returns the blocks of the root backbone in paint order.
func (d *Display) Blocks() []*Block {
	return append([]*Block(nil), d.rootBB.blocks()...)
}

// Walk calls fn for every instance in depth-first paint order. Returning
// false from fn skips the instance's children.
func (d *Display) Walk(fn func(in *Instance) bool) {
	var walk func(in *Instance)
	walk = func(in *Instance) {
		if !fn(in) {
			return
		}
		for _, c := range in.children {
			walk(c)
		}
	}
	if d.rootInstance != nil {
		walk(d.rootInstance)
	}
}

// Instances returns every instance of n, one per trail.
func (d *Display) Instances(n Node) []*Instance {
	return append([]*Instance(nil), d.byNode[n]...)
}

// WorldTransforms returns the world transform of every trail of n.
func (d *Display) WorldTransforms(n Node) []gg.Matrix {
	list := d.byNode[n]
	out := make([]gg.Matrix, 0, len(list))
	for _, in := range list {
		out = append(out, in.world)
	}
	return out
}

// WorldTransform returns the world transform of the instance at trail,
// a path of nodes starting at the display root.
func (d *Display) WorldTransform(trail []Node) (gg.Matrix, bool) {
	in := d.rootInstance
	if in == nil || len(trail) == 0 || trail[0] != in.node {
		return gg.Identity(), false
	}
next:
	for _, n := range trail[1:] {
		for _, c := range in.children {
			if c.node == n {
				in = c
				continue next
			}
		}
		return gg.Identity(), false
	}
	return in.world, true
}

// Audit walks the whole instance/drawable/block graph and reports the first
// broken invariant. It is meant for tests and runs in time linear in the
// graph size. Between frames the graph is expected to be fully stitched.
func (d *Display) Audit() error {
	fail := func(format string, args ...any) error {
		return &InvariantError{Phase: d.phase, Msg: fmt.Sprintf(format, args...)}
	}
	if d.disposed {
		return nil
	}

	// Links, block contiguity and block ends.
	linked := 0
	for bb := range d.backbones {
		if err := d.auditBackbone(bb, fail); err != nil {
			return err
		}
		linked += bb.count
	}

	// Paint order follows the instance tree.
	if d.rootInstance != nil {
		want := make(map[*backbone][]*Drawable)
		want[d.rootBB] = d.rootInstance.expectedOrder(nil, want)
		for bb, list := range want {
			got := bb.drawables()
			if len(got) != len(list) {
				return fail("backbone has %d drawables, instance tree expects %d", len(got), len(list))
			}
			for i := range got {
				if got[i] != list[i] {
					return fail("paint order differs at %d: %s, want %s", i, got[i].id, list[i].id)
				}
			}
		}
	}

	// Every live drawable is owned by a live instance.
	var bad error
	d.drawables.each(func(dr *Drawable) {
		if bad != nil {
			return
		}
		in := dr.instance
		switch {
		case dr.disposed:
			bad = fail("disposed drawable %s still in the arena", dr.id)
		case in == nil || in.disposed:
			bad = fail("drawable %s outlived its instance", dr.id)
		case in.self != dr && in.group != dr && in.sharedDr != dr:
			bad = fail("drawable %s is not owned by %s", dr.id, in)
		}
	})
	if bad != nil {
		return bad
	}

	instances := 0
	d.Walk(func(in *Instance) bool {
		instances++
		if in.disposed && bad == nil {
			bad = fail("disposed %s is reachable", in)
		}
		return true
	})
	if bad != nil {
		return bad
	}
	if instances != d.liveInstances {
		return fail("%d instances reachable, %d live", instances, d.liveInstances)
	}
	if linked > d.drawables.live {
		return fail("%d drawables linked, %d live", linked, d.drawables.live)
	}
	return nil
}

func (d *Display) auditBackbone(bb *backbone, fail func(string, ...any) error) error {
	a := &d.drawables
	var (
		prev      DrawableID
		count     int
		cur       *Block
		curFirst  DrawableID
		curCount  int
		lastID    DrawableID
		seen      = make(map[*Block]bool)
		blockSeen int
	)
	closeBlock := func() error {
		if cur == nil {
			return nil
		}
		if cur.first != curFirst || cur.last != lastID {
			return fail("%s ends %s..%s, run is %s..%s", cur, cur.first, cur.last, curFirst, lastID)
		}
		if cur.count != curCount {
			return fail("%s counts %d drawables, run has %d", cur, cur.count, curCount)
		}
		return nil
	}
	for id := bb.head; !id.IsZero(); {
		dr := a.get(id)
		if dr == nil {
			return fail("stale link %s in paint order", id)
		}
		if dr.bb != bb {
			return fail("drawable %s linked into a foreign backbone", dr.id)
		}
		if dr.prev != prev {
			return fail("drawable %s has prev %s, want %s", dr.id, dr.prev, prev)
		}
		b := dr.block
		if b == nil {
			return fail("drawable %s has no block", dr.id)
		}
		if b.disposed || b.bb != bb {
			return fail("drawable %s belongs to a dead or foreign %s", dr.id, b)
		}
		if b.renderer != dr.renderer {
			return fail("drawable %s (%s) in %s", dr.id, dr.renderer, b)
		}
		if b != cur {
			if err := closeBlock(); err != nil {
				return err
			}
			if seen[b] {
				return fail("%s is not contiguous", b)
			}
			if cur != nil && cur.renderer == b.renderer {
				return fail("adjacent %s and %s share a renderer", cur, b)
			}
			seen[b] = true
			blockSeen++
			cur, curFirst, curCount = b, dr.id, 0
		}
		curCount++
		count++
		lastID = dr.id
		prev = dr.id
		id = dr.next
	}
	if err := closeBlock(); err != nil {
		return err
	}
	if bb.tail != prev {
		return fail("backbone tail %s, last linked %s", bb.tail, prev)
	}
	if count != bb.count {
		return fail("backbone counts %d drawables, list has %d", bb.count, count)
	}
	if blockSeen != bb.blockCount {
		return fail("backbone counts %d blocks, list has %d", bb.blockCount, blockSeen)
	}
	return nil
}

// expectedOrder appends the drawables the instance should contribute to its
// backbone and records the expected order of nested backbones in nested.
func (in *Instance) expectedOrder(out []*Drawable, nested map[*backbone][]*Drawable) []*Drawable {
	if !in.selfVisible {
		return out
	}
	if in.sharedDr != nil {
		return append(out, in.sharedDr)
	}
	target := out
	if in.group != nil {
		out = append(out, in.group)
		target = nil
	}
	if in.self != nil {
		target = append(target, in.self)
	}
	for _, c := range in.children {
		target = c.expectedOrder(target, nested)
	}
	if in.group != nil {
		nested[in.own] = target
		return out
	}
	return target
}
