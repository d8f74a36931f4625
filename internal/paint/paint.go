// Package paint holds the per-role dispatch shared by the raster backends.
package paint

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg"

	"github.com/gogpu/stage"
)

// ErrUnsupportedRole is returned when a backend has no paint function for
// a drawable's role.
var ErrUnsupportedRole = errors.New("paint: role not supported by backend")

// Func paints one drawable into dc.
type Func func(dc *gg.Context, dr *stage.Drawable) error

// Table maps every drawable role to its paint function. A nil entry means
// the backend never hosts drawables of that role.
type Table [stage.NumRoles]Func

// Paint dispatches dr to the function of its role.
func (t *Table) Paint(dc *gg.Context, dr *stage.Drawable) error {
	r := dr.Role()
	if int(r) >= len(t) || t[r] == nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedRole, r)
	}
	return t[r](dc, dr)
}

// Run clears dc and paints run in order.
func (t *Table) Run(dc *gg.Context, run []*stage.Drawable) error {
	dc.Clear()
	for _, dr := range run {
		if err := t.Paint(dc, dr); err != nil {
			return fmt.Errorf("%s %s: %w", dr.Role(), dr.ID(), err)
		}
	}
	return nil
}

// Self paints the drawable's painter with its world transform.
func Self(dc *gg.Context, dr *stage.Drawable) error {
	p := dr.Painter()
	if p == nil {
		return nil
	}
	dc.SetTransform(dr.World())
	defer dc.Identity()
	return p.Paint(dc)
}
