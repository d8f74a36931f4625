package stage

import "sync"

// ChangeInterval records that the paint order of a backbone changed
// between two drawables. Either end may be zero for the list ends, and
// either end may go stale before stitching; a later interval then covers
// the gap.
type ChangeInterval struct {
	before, after DrawableID
}

var intervalPool = sync.Pool{
	New: func() any { return new(ChangeInterval) },
}

func newChangeInterval(before, after DrawableID) *ChangeInterval {
	ci := intervalPool.Get().(*ChangeInterval) //nolint:errcheck // pool only holds *ChangeInterval
	ci.before = before
	ci.after = after
	return ci
}

func (ci *ChangeInterval) release() {
	*ci = ChangeInterval{}
	intervalPool.Put(ci)
}
