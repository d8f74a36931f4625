package stage

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// Display synchronizes a node tree into renderer-specific drawables
// grouped into blocks and repaints only what changed.
//
// A Display is not safe for concurrent use. Node mutations, frames and
// queries must all happen on the goroutine that owns the display.
type Display struct {
	id   uuid.UUID
	opts options
	log  *slog.Logger

	root         Node
	rootInstance *Instance
	rootBB       *backbone

	backends  map[Renderer]Backend
	available Renderer

	drawables   arena
	byNode      map[Node][]*Instance
	backbones   map[*backbone]struct{}
	shared      map[Node]*sharedCache
	listeners   map[Node][]*transformListener
	touched     map[*Block]struct{}
	nextBlockID uint64

	liveInstances int

	phase    Phase
	frame    uint64
	failure  error
	disposed bool

	stats FrameStats
	last  FrameStats

	// Per-frame worklists, drained in phase order.
	blockChanges       worklist[*Drawable]
	instancesToDispose worklist[*Instance]
	drawablesToDispose worklist[*Drawable]
	blocksToDispose    worklist[*Block]
	backbonesToDispose worklist[*backbone]
	transformRoots     [2]worklist[*Instance]
	visibilityRoots    worklist[*Instance]
	linksToUpdate      worklist[*backbone]
	intervalsToRelease worklist[*ChangeInterval]
	reduceRefs         worklist[*Drawable]

	damage     damageTracker
	lastDamage damageTracker

	width, height  int
	dpr            float64
	pendingWidth   int
	pendingHeight  int
	pendingDPR     float64
	sizePending    bool
	background     color.Color
	backgroundDiff bool

	cursorOverride string
	cursor         string
	onCursor       func(string)
	onResize       func(width, height int)
	onStep         func(dt time.Duration)

	overlays        map[int]*overlayLayer
	overlayOrder    []int
	overlaysChanged bool

	output *image.RGBA
}

// New creates a display for the tree rooted at root. Backends are selected
// from the registered ones in the configured preference order; a backend
// whose Check fails is skipped.
//
// Nothing is synchronized until the first UpdateDisplay.
func New(root Node, opts ...Option) (*Display, error) {
	if root == nil {
		return nil, errors.New("stage: nil root node")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.width <= 0 || o.height <= 0 {
		return nil, ErrInvalidSize
	}

	d := &Display{
		id:         uuid.New(),
		opts:       o,
		root:       root,
		backends:   make(map[Renderer]Backend),
		byNode:     make(map[Node][]*Instance),
		backbones:  make(map[*backbone]struct{}),
		shared:     make(map[Node]*sharedCache),
		listeners:  make(map[Node][]*transformListener),
		touched:    make(map[*Block]struct{}),
		width:      o.width,
		height:     o.height,
		dpr:        o.dpr,
		background: o.background,
		overlays:   make(map[int]*overlayLayer),
	}
	base := o.logger
	if base == nil {
		base = Logger()
	}
	d.log = base.With("display", d.id.String())

	cfg := d.surfaceConfig()
	for _, r := range o.order {
		if !IsRegistered(r) {
			continue
		}
		b, err := newBackend(r)
		if err != nil {
			return nil, err
		}
		if err := b.Check(cfg); err != nil {
			d.log.Debug("stage: backend unavailable", "renderer", r.String(), "err", err)
			continue
		}
		propagateLogger(b, d.log)
		d.backends[r] = b
		d.available |= r
	}
	if d.available == 0 {
		return nil, ErrNoBackend
	}
	d.rootBB = newBackbone(d, nil)
	d.log.Info("stage: display created",
		"size", [2]int{d.width, d.height}, "dpr", d.dpr, "renderers", d.available.String())
	return d, nil
}

// ID returns the unique identifier of the display.
func (d *Display) ID() uuid.UUID { return d.id }

// Root returns the root node.
func (d *Display) Root() Node { return d.root }

// Renderers returns the renderers whose backends the display selected.
func (d *Display) Renderers() Renderer { return d.available }

// Backend returns the backend selected for r, or nil.
func (d *Display) Backend(r Renderer) Backend { return d.backends[r] }

// Disposed reports whether Dispose was called.
func (d *Display) Disposed() bool { return d.disposed }

// Size returns the display size in CSS pixels.
func (d *Display) Size() (width, height int) { return d.width, d.height }

// DevicePixelRatio returns the ratio of device pixels to CSS pixels.
func (d *Display) DevicePixelRatio() float64 { return d.dpr }

// SetSize schedules a size change. It is applied by the next frame before
// blocks are repainted and reported through OnResize afterwards.
func (d *Display) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidSize
	}
	d.pendingWidth, d.pendingHeight = width, height
	d.sizePending = true
	return nil
}

// SetDevicePixelRatio schedules a pixel ratio change for the next frame.
// Non-positive values are ignored.
func (d *Display) SetDevicePixelRatio(ratio float64) {
	if ratio > 0 && ratio != d.dpr {
		d.pendingDPR = ratio
	}
}

// SetBackground sets the colour the output is cleared to.
func (d *Display) SetBackground(c color.Color) {
	if c == nil {
		c = color.Transparent
	}
	d.background = c
	d.backgroundDiff = true
}

// Background returns the background colour.
func (d *Display) Background() color.Color { return d.background }

// SetCursor overrides the cursor of the root node. An empty name removes
// the override.
func (d *Display) SetCursor(name string) {
	d.cursorOverride = name
}

// Cursor returns the cursor resolved by the last frame.
func (d *Display) Cursor() string { return d.cursor }

// OnCursorChange registers fn to be called when a frame resolves a
// different cursor.
func (d *Display) OnCursorChange(fn func(name string)) {
	d.onCursor = fn
}

// OnResize registers fn to be called after a frame applied a size change.
func (d *Display) OnResize(fn func(width, height int)) {
	d.onResize = fn
}

// OnStep registers fn to be called by Frame before the frame runs.
func (d *Display) OnStep(fn func(dt time.Duration)) {
	d.onStep = fn
}

// Image returns the composited output of the last frame in device pixels.
// The image is reused by later frames and must not be modified.
func (d *Display) Image() *image.RGBA { return d.output }

// Dispose disposes the root instance cascade, every block surface and the
// overlays. Dispose on a disposed display is a no-op. It fails with
// ErrFrameInProgress when called from inside a frame.
func (d *Display) Dispose() error {
	if d.disposed {
		return nil
	}
	if d.phase != PhaseIdle && d.failure == nil {
		return ErrFrameInProgress
	}
	d.phase = PhaseDisposingStaleInstances
	// Backbones go first so every drawable is detached before its
	// instance disposes it.
	d.backbonesToDispose.drain()
	for bb := range d.backbones {
		bb.teardown()
	}
	if d.rootInstance != nil {
		d.rootInstance.dispose()
		d.rootInstance = nil
	}
	for _, in := range d.instancesToDispose.drain() {
		in.dispose()
	}
	for _, dr := range d.drawablesToDispose.drain() {
		if !dr.disposed {
			dr.dispose()
		}
	}
	for _, b := range d.blocksToDispose.drain() {
		if b.count == 0 {
			b.dispose()
		}
	}
	for _, ci := range d.intervalsToRelease.drain() {
		ci.release()
	}
	d.closeOverlays()
	d.output = nil
	d.disposed = true
	d.phase = PhaseIdle
	d.log.Info("stage: display disposed", "frames", d.frame)
	return nil
}

// bounds returns the output rectangle in device pixels.
func (d *Display) bounds() image.Rectangle {
	return image.Rect(0, 0,
		int(math.Ceil(float64(d.width)*d.dpr)),
		int(math.Ceil(float64(d.height)*d.dpr)))
}

func (d *Display) surfaceConfig() SurfaceConfig {
	b := d.bounds()
	return SurfaceConfig{
		Width:            b.Dx(),
		Height:           b.Dy(),
		DevicePixelRatio: d.dpr,
		DeviceProvider:   d.opts.provider,
		Logger:           d.log,
	}
}

// unindex removes in from the node index.
func (d *Display) unindex(in *Instance) {
	list := d.byNode[in.node]
	for i, x := range list {
		if x == in {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(d.byNode, in.node)
		return
	}
	d.byNode[in.node] = list
}

// eachBackbone calls fn for the root backbone and every nested backbone
// reachable through linked group drawables, parents first.
func (d *Display) eachBackbone(fn func(bb *backbone)) {
	var walk func(bb *backbone)
	walk = func(bb *backbone) {
		fn(bb)
		a := &d.drawables
		for dr := a.get(bb.head); dr != nil; dr = a.get(dr.next) {
			if dr.role == RoleGroup && dr.group != nil {
				walk(dr.group)
			}
		}
	}
	if d.rootBB != nil && !d.rootBB.disposed {
		walk(d.rootBB)
	}
}
