package stage

import (
	"errors"
	"fmt"
)

// Errors returned by Display operations.
var (
	// ErrFrameInProgress is returned when UpdateDisplay is invoked while a
	// frame pipeline on the same display is still running, for example from
	// a painter, a transform listener or an overlay.
	ErrFrameInProgress = errors.New("stage: frame triggered while a frame is in progress")

	// ErrPreviousFrameFailed is returned by every frame attempt after a frame
	// returned an error or panicked. The display is not repaired
	// automatically; the cause is included in the wrapped message.
	ErrPreviousFrameFailed = errors.New("stage: previous frame failed and was not cleaned up")

	// ErrUnsupportedRenderer is returned when no registered backend can draw
	// a node's content with the renderers it supports.
	ErrUnsupportedRenderer = errors.New("stage: unsupported renderer")

	// ErrNoBackend is returned when a renderer has no registered backend.
	ErrNoBackend = errors.New("stage: no backend registered")

	// ErrDisposed is returned when a disposed display is used.
	ErrDisposed = errors.New("stage: display is disposed")

	// ErrInvalidSize is returned for non-positive display dimensions.
	ErrInvalidSize = errors.New("stage: invalid size")

	// ErrNodeCycle is returned when a node is its own ancestor.
	ErrNodeCycle = errors.New("stage: node is its own ancestor")

	// ErrOverlayExists is returned when an overlay is added at a taken z.
	ErrOverlayExists = errors.New("stage: overlay already exists")

	// ErrNoOverlay is returned when no overlay is registered at a z.
	ErrNoOverlay = errors.New("stage: no overlay")
)

// InvariantError reports a broken structural invariant of the
// instance/drawable/block graph. It is raised with panic when assertions
// are enabled and returned by [Display.Audit].
type InvariantError struct {
	Phase Phase
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("stage: invariant violated during %s: %s", e.Phase, e.Msg)
}

// assertf panics with an InvariantError when assertions are enabled on the
// display. With assertions off the check is skipped entirely.
func (d *Display) assertf(cond bool, format string, args ...any) {
	if cond || !d.opts.assertions {
		return
	}
	panic(&InvariantError{Phase: d.phase, Msg: fmt.Sprintf(format, args...)})
}
