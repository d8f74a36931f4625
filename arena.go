package stage

import "fmt"

// DrawableID is a stable handle to a drawable in its display's arena.
// The zero value never refers to a drawable. A handle whose drawable was
// disposed stops resolving even if the slot is reused.
type DrawableID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the zero handle.
func (id DrawableID) IsZero() bool { return id.gen == 0 }

func (id DrawableID) String() string {
	if id.IsZero() {
		return "#-"
	}
	return fmt.Sprintf("#%d.%d", id.index, id.gen)
}

// arena owns every live drawable of a display. Links between drawables are
// handles into the arena, so a stale link resolves to nil instead of a
// dangling pointer.
type arena struct {
	slots []*Drawable
	gens  []uint32
	free  []uint32
	live  int
}

func (a *arena) alloc(d *Drawable) DrawableID {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots)) //nolint:gosec // arena size is bounded by memory
		a.slots = append(a.slots, nil)
		a.gens = append(a.gens, 0)
	}
	a.gens[idx]++
	if a.gens[idx] == 0 {
		a.gens[idx] = 1
	}
	a.slots[idx] = d
	a.live++
	id := DrawableID{index: idx, gen: a.gens[idx]}
	d.id = id
	return id
}

// get resolves id, returning nil for the zero handle and stale handles.
func (a *arena) get(id DrawableID) *Drawable {
	if id.IsZero() || int(id.index) >= len(a.slots) {
		return nil
	}
	if a.gens[id.index] != id.gen {
		return nil
	}
	return a.slots[id.index]
}

// release frees the slot of id. It reports false if id was already stale.
func (a *arena) release(id DrawableID) bool {
	if a.get(id) == nil {
		return false
	}
	a.slots[id.index] = nil
	a.gens[id.index]++
	if a.gens[id.index] == 0 {
		a.gens[id.index] = 1
	}
	a.free = append(a.free, id.index)
	a.live--
	return true
}

// each calls fn for every live drawable in slot order.
func (a *arena) each(fn func(*Drawable)) {
	for _, d := range a.slots {
		if d != nil {
			fn(d)
		}
	}
}
