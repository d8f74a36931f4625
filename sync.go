package stage

import "fmt"

// sync reconciles the instance with its node and emits its drawables into
// l in paint order. Children are synced in node-child order, which is paint
// order, so the list is built without a separate sort.
//
// pref is the renderer preference inherited from the ancestors.
func (in *Instance) sync(l *linker, pref Renderer) error {
	d := in.display
	if in.stub {
		in.initStub()
	}
	if in.inherited != pref {
		// Descendants without a hint of their own follow the new preference.
		in.inherited = pref
		in.pending |= ChangeRenderer
		in.subtreeDirty = true
	}
	if !in.subtreeDirty {
		in.emitCached(l)
		return nil
	}
	in.subtreeDirty = false
	changes := in.pending
	in.pending = 0
	n := in.node

	if changes&ChangeVisibility != 0 {
		d.markVisibilityRoot(in)
	}
	in.selfVisible = n.Visible()
	if !in.selfVisible {
		// Keep everything but visibility pending until the node is shown.
		in.pending = changes &^ ChangeVisibility
		in.rangeFirst, in.rangeLast = DrawableID{}, DrawableID{}
		return nil
	}
	if changes&ChangeTransform != 0 {
		d.markTransformRootDirty(in, in.self == nil && in.sharedDr == nil)
	}

	_, clipped := n.Clip()
	needsShared := in.parent != nil && n.SharedCache()
	needsGroup := !needsShared && in.parent != nil &&
		(n.Isolated() || n.Opacity() < 1 || clipped)

	if needsShared {
		return in.syncShared(l, changes)
	}
	// A former shared-cache instance has no child instances to reuse.
	if changes&ChangeChildren != 0 || in.sharedDr != nil {
		if err := in.reconcileChildren(); err != nil {
			return err
		}
	}
	in.dropShared()

	childPref := pref
	if h := n.RendererHint() & RendererMask; h != 0 {
		childPref = h
	}

	if err := in.syncSelf(childPref, changes); err != nil {
		return err
	}
	if err := in.syncGroup(needsGroup, changes); err != nil {
		return err
	}

	start := l.last
	target := l
	if in.group != nil {
		l.emit(in.group)
		target = newLinker(in.own)
	}
	if in.self != nil {
		target.emit(in.self)
	}
	for _, c := range in.children {
		if err := c.sync(target, childPref); err != nil {
			return err
		}
	}
	if in.group != nil {
		target.finish()
	}
	in.setRange(l, start)
	in.sweepDropped()
	return nil
}

// emitCached splices the unchanged subtree back in with one range move.
func (in *Instance) emitCached(l *linker) {
	a := &in.display.drawables
	f, last := a.get(in.rangeFirst), a.get(in.rangeLast)
	if f == nil || last == nil {
		return
	}
	l.emitRange(f, last)
}

// setRange records the drawables emitted into l after start.
func (in *Instance) setRange(l *linker, start DrawableID) {
	if l.last == start {
		in.rangeFirst, in.rangeLast = DrawableID{}, DrawableID{}
		return
	}
	in.rangeFirst = l.bb.nextOf(start)
	in.rangeLast = l.last
}

// reconcileChildren matches the node's children against the existing child
// instances by node identity. Unmatched instances are queued for disposal;
// their drawables are unlinked when the linker sweeps leftovers.
func (in *Instance) reconcileChildren() error {
	d := in.display
	nodes := in.node.Children()
	var pool map[Node][]*Instance
	if len(in.children) > 0 {
		pool = make(map[Node][]*Instance, len(in.children))
		for _, c := range in.children {
			pool[c.node] = append(pool[c.node], c)
		}
	}
	next := make([]*Instance, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if list := pool[n]; len(list) > 0 {
			next = append(next, list[0])
			pool[n] = list[1:]
			continue
		}
		if in.hasAncestorNode(n) {
			return fmt.Errorf("%w: %s under %s", ErrNodeCycle, nodeLabel(n), nodeLabel(in.node))
		}
		next = append(next, d.newInstance(n, in))
	}
	for _, list := range pool {
		for _, c := range list {
			d.markForDisposal(c)
		}
	}
	in.children = next
	return nil
}

// syncSelf creates, keeps or replaces the self drawable.
func (in *Instance) syncSelf(pref Renderer, changes Change) error {
	d := in.display
	p := in.node.Painter()
	in.painter = p
	if p == nil {
		in.fittable = false
		in.dropSelf()
		return nil
	}
	b := p.Bounds()
	in.fittable = b.IsFinite() && !b.IsEmpty()

	r, err := d.chooseRenderer(p.Renderers(), pref)
	if err != nil {
		return fmt.Errorf("%w: %s supports %s, display offers %s",
			err, nodeLabel(in.node), p.Renderers(), d.available)
	}
	if in.self != nil && in.self.renderer != r {
		d.log.Debug("stage: renderer switch", "node", nodeLabel(in.node),
			"from", in.self.renderer.String(), "to", r.String())
		in.dropSelf()
	}
	if in.self == nil {
		in.self = newDrawable(d, in, RoleSelf, r)
		return nil
	}
	if changes&(ChangeContent|ChangeRenderer) != 0 {
		in.self.markContentDirty()
	}
	return nil
}

// syncGroup creates or drops the group drawable and its nested backbone.
func (in *Instance) syncGroup(needed bool, changes Change) error {
	d := in.display
	if !needed {
		in.dropGroup()
		return nil
	}
	if in.group != nil {
		if changes&ChangeCompositing != 0 {
			in.group.markDirty()
		}
		return nil
	}
	if d.available&hostRenderer == 0 {
		return fmt.Errorf("%w: %s needs a %s group, display offers %s",
			ErrUnsupportedRenderer, nodeLabel(in.node), hostRenderer, d.available)
	}
	in.group = newDrawable(d, in, RoleGroup, hostRenderer)
	in.own = newBackbone(d, in.group)
	in.group.group = in.own
	return nil
}

// syncShared replaces the subtree with one shared-cache drawable.
func (in *Instance) syncShared(l *linker, changes Change) error {
	d := in.display
	if in.sharedDr == nil {
		if d.available&hostRenderer == 0 {
			return fmt.Errorf("%w: %s needs a %s shared cache, display offers %s",
				ErrUnsupportedRenderer, nodeLabel(in.node), hostRenderer, d.available)
		}
		dr := newDrawable(d, in, RoleSharedCache, hostRenderer)
		dr.shared = d.acquireShared(in.node, dr)
		in.sharedDr = dr
	} else if changes&ChangeCompositing != 0 {
		in.sharedDr.markDirty()
	}
	in.dropSelf()
	in.dropGroup()
	for _, c := range in.children {
		d.markForDisposal(c)
	}
	in.children = nil
	in.painter = nil

	start := l.last
	l.emit(in.sharedDr)
	in.setRange(l, start)
	in.sweepDropped()
	return nil
}

// dropSelf unlinks the self drawable and queues it for disposal.
func (in *Instance) dropSelf() {
	if in.self == nil {
		return
	}
	old := in.self
	in.self = nil
	if old.bb != nil {
		old.bb.removeRange(old, old)
	}
	in.display.markDrawableForDisposal(old)
}

// dropGroup queues the group drawable for disposal. The nested backbone is
// swept once the subtree has been emitted elsewhere.
func (in *Instance) dropGroup() {
	if in.group == nil {
		return
	}
	in.display.markDrawableForDisposal(in.group)
	in.group = nil
	in.dropped = in.own
	in.own = nil
}

func (in *Instance) dropShared() {
	if in.sharedDr == nil {
		return
	}
	old := in.sharedDr
	in.sharedDr = nil
	if old.bb != nil {
		old.bb.removeRange(old, old)
	}
	in.display.markDrawableForDisposal(old)
}

// sweepDropped detaches whatever stayed in a dropped nested backbone and
// queues it for disposal.
func (in *Instance) sweepDropped() {
	bb := in.dropped
	if bb == nil {
		return
	}
	in.dropped = nil
	newLinker(bb).finish()
	in.display.markBackboneForDisposal(bb)
}

// chooseRenderer picks the first renderer in preference order that the
// content supports and the display offers, favouring hint.
func (d *Display) chooseRenderer(supported, hint Renderer) (Renderer, error) {
	supported &= d.available
	if cand := supported & hint; cand != 0 {
		for _, r := range d.opts.order {
			if cand&r != 0 {
				return r, nil
			}
		}
	}
	for _, r := range d.opts.order {
		if supported&r != 0 {
			return r, nil
		}
	}
	return 0, ErrUnsupportedRenderer
}
