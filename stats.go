package stage

import (
	"fmt"
	"time"
)

// FrameStats counts the work done by one frame. The counters are
// diagnostics only; no behaviour depends on them.
type FrameStats struct {
	Frame    uint64
	Duration time.Duration

	InstancesCreated  int
	InstancesDisposed int

	DrawablesCreated    int
	DrawablesDisposed   int
	DrawablesReassigned int
	DrawablesRepainted  int

	BlocksCreated   int
	BlocksMerged    int
	BlocksSplit     int
	BlocksDisposed  int
	BlocksRepainted int

	TransformsUpdated     int
	SharedCachesCreated   int
	SharedCachesRepainted int

	// DamageRects is the number of regions recomposited, 0 for a full
	// redraw or an idle frame.
	DamageRects int
	FullRedraw  bool
}

func (s FrameStats) String() string {
	return fmt.Sprintf("frame %d (%s): instances +%d/-%d, drawables +%d/-%d ~%d repainted %d, "+
		"blocks +%d/-%d merged %d split %d repainted %d",
		s.Frame, s.Duration,
		s.InstancesCreated, s.InstancesDisposed,
		s.DrawablesCreated, s.DrawablesDisposed, s.DrawablesReassigned, s.DrawablesRepainted,
		s.BlocksCreated, s.BlocksDisposed, s.BlocksMerged, s.BlocksSplit, s.BlocksRepainted)
}

// Counts is a snapshot of the live object graph.
type Counts struct {
	Instances    int
	Drawables    int
	Blocks       int
	Backbones    int
	SharedCaches int
}

// Stats returns the statistics of the last completed frame.
func (d *Display) Stats() FrameStats { return d.last }

// Counts returns the number of live objects owned by the display.
func (d *Display) Counts() Counts {
	c := Counts{
		Instances:    d.liveInstances,
		Drawables:    d.drawables.live,
		Backbones:    len(d.backbones),
		SharedCaches: len(d.shared),
	}
	for bb := range d.backbones {
		c.Blocks += bb.blockCount
	}
	return c
}
