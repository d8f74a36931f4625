// Package scenefile loads TOML scene descriptions for the demo command.
//
// A scene lists named nodes, the display they are shown on and a script
// of mutations applied at given frames:
//
//	[display]
//	root = "root"
//	width = 320
//	height = 240
//	renderers = ["canvas", "svg", "dom"]
//
//	[[node]]
//	name = "root"
//	children = ["box"]
//
//	[[node]]
//	name = "box"
//	shape = "rect"
//	width = 40
//	height = 40
//	fill = "#e33"
//	translate = [10, 10]
//
//	[[step]]
//	frame = 2
//	node = "box"
//	action = "transform"
//	translate = [60, 10]
package scenefile

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gg"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/node"
)

// ErrInvalidScene is wrapped by every validation error.
var ErrInvalidScene = errors.New("scenefile: invalid scene")

// Scene is the decoded scene file.
type Scene struct {
	Display Display    `toml:"display"`
	Nodes   []NodeSpec `toml:"node"`
	Steps   []Step     `toml:"step"`
}

// Display configures the display the scene is shown on.
type Display struct {
	// Root names the root node. Empty selects the first node.
	Root       string   `toml:"root"`
	Width      int      `toml:"width"`
	Height     int      `toml:"height"`
	DPR        float64  `toml:"dpr"`
	Background string   `toml:"background"`
	Renderers  []string `toml:"renderers"`
	// Frames is the default number of frames to run.
	Frames int `toml:"frames"`
}

// NodeSpec describes one node.
type NodeSpec struct {
	Name     string   `toml:"name"`
	Children []string `toml:"children"`

	Translate []float64 `toml:"translate"`
	Scale     []float64 `toml:"scale"`
	// Rotate is in degrees.
	Rotate float64 `toml:"rotate"`

	// Shape is "rect", "circle", "polyline" or empty for no content.
	Shape     string      `toml:"shape"`
	X         float64     `toml:"x"`
	Y         float64     `toml:"y"`
	Width     float64     `toml:"width"`
	Height    float64     `toml:"height"`
	Radius    float64     `toml:"radius"`
	Points    [][]float64 `toml:"points"`
	Fill      string      `toml:"fill"`
	Stroke    string      `toml:"stroke"`
	LineWidth float64     `toml:"line_width"`
	Supports  []string    `toml:"supports"`

	Hint        []string  `toml:"hint"`
	Opacity     *float64  `toml:"opacity"`
	Isolated    bool      `toml:"isolated"`
	SharedCache bool      `toml:"shared_cache"`
	Hidden      bool      `toml:"hidden"`
	Clip        []float64 `toml:"clip"`
	Cursor      string    `toml:"cursor"`
}

// Step is one scripted mutation.
type Step struct {
	Frame  int    `toml:"frame"`
	Node   string `toml:"node"`
	Action string `toml:"action"`

	Translate []float64 `toml:"translate"`
	Scale     []float64 `toml:"scale"`
	Rotate    float64   `toml:"rotate"`
	Fill      string    `toml:"fill"`
	Hint      []string  `toml:"hint"`
	Opacity   float64   `toml:"opacity"`
	Child     string    `toml:"child"`
	Index     *int      `toml:"index"`
	Cursor    string    `toml:"cursor"`
	Width     int       `toml:"width"`
	Height    int       `toml:"height"`
}

// Step actions.
const (
	ActionTransform   = "transform"
	ActionHide        = "hide"
	ActionShow        = "show"
	ActionFill        = "fill"
	ActionHint        = "hint"
	ActionOpacity     = "opacity"
	ActionAddChild    = "add-child"
	ActionRemoveChild = "remove-child"
	ActionInvalidate  = "invalidate"
	ActionCursor      = "cursor"
	ActionIsolate     = "isolate"
	ActionShare       = "share"
	ActionResize      = "resize"
)

var actions = []string{
	ActionTransform, ActionHide, ActionShow, ActionFill, ActionHint,
	ActionOpacity, ActionAddChild, ActionRemoveChild, ActionInvalidate,
	ActionCursor, ActionIsolate, ActionShare, ActionResize,
}

// Load reads and validates the scene file at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a scene. Unknown keys are errors.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, err
	}
	if und := md.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidScene, strings.Join(keys, ", "))
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScene, fmt.Sprintf(format, args...))
}

func (s *Scene) validate() error {
	if len(s.Nodes) == 0 {
		return invalid("no nodes")
	}
	byName := make(map[string]*NodeSpec, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Name == "" {
			return invalid("node %d has no name", i)
		}
		if _, dup := byName[n.Name]; dup {
			return invalid("duplicate node %q", n.Name)
		}
		byName[n.Name] = n
	}
	for _, n := range s.Nodes {
		for _, c := range n.Children {
			if _, ok := byName[c]; !ok {
				return invalid("node %q: unknown child %q", n.Name, c)
			}
		}
	}
	if s.Display.Root != "" {
		if _, ok := byName[s.Display.Root]; !ok {
			return invalid("unknown root %q", s.Display.Root)
		}
	}
	if s.Display.Width < 0 || s.Display.Height < 0 {
		return invalid("negative display size")
	}
	if err := checkCycles(s.Nodes, byName); err != nil {
		return err
	}
	for i, st := range s.Steps {
		if !slices.Contains(actions, st.Action) {
			return invalid("step %d: unknown action %q", i, st.Action)
		}
		if _, ok := byName[st.Node]; !ok && st.Action != ActionResize {
			return invalid("step %d: unknown node %q", i, st.Node)
		}
		if st.Frame < 0 {
			return invalid("step %d: negative frame", i)
		}
		if st.Action == ActionAddChild || st.Action == ActionRemoveChild {
			if _, ok := byName[st.Child]; !ok {
				return invalid("step %d: unknown child %q", i, st.Child)
			}
		}
	}
	return nil
}

// checkCycles rejects child references that lead back to an ancestor.
func checkCycles(nodes []NodeSpec, byName map[string]*NodeSpec) error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(nodes))
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case active:
			return invalid("cycle through node %q", name)
		case done:
			return nil
		}
		state[name] = active
		for _, c := range byName[name].Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, n := range nodes {
		if err := visit(n.Name); err != nil {
			return err
		}
	}
	return nil
}

// RootName returns the name of the root node.
func (s *Scene) RootName() string {
	if s.Display.Root != "" {
		return s.Display.Root
	}
	return s.Nodes[0].Name
}

// StepsAt returns the steps scripted for frame, in file order.
func (s *Scene) StepsAt(frame int) []Step {
	var out []Step
	for _, st := range s.Steps {
		if st.Frame == frame {
			out = append(out, st)
		}
	}
	return out
}

// LastFrame returns the highest scripted frame, or -1 without steps.
func (s *Scene) LastFrame() int {
	last := -1
	for _, st := range s.Steps {
		last = max(last, st.Frame)
	}
	return last
}

// Options returns the display options of the scene.
func (s *Scene) Options() ([]stage.Option, error) {
	var opts []stage.Option
	if s.Display.Width > 0 && s.Display.Height > 0 {
		opts = append(opts, stage.WithSize(s.Display.Width, s.Display.Height))
	}
	if s.Display.DPR > 0 {
		opts = append(opts, stage.WithDevicePixelRatio(s.Display.DPR))
	}
	if s.Display.Background != "" {
		c, err := gg.ParseHex(s.Display.Background)
		if err != nil {
			return nil, fmt.Errorf("%w: background: %w", ErrInvalidScene, err)
		}
		opts = append(opts, stage.WithBackground(c))
	}
	if len(s.Display.Renderers) > 0 {
		order := make([]stage.Renderer, 0, len(s.Display.Renderers))
		for _, name := range s.Display.Renderers {
			r, err := stage.ParseRenderer(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
			}
			if !r.IsSingle() {
				return nil, invalid("renderer order entry %q names several renderers", name)
			}
			order = append(order, r)
		}
		opts = append(opts, stage.WithRenderers(order...))
	}
	return opts, nil
}

// Tree is a built node tree.
type Tree struct {
	Root  *node.Node
	Nodes map[string]*node.Node
}

// Build creates the nodes of the scene.
func (s *Scene) Build() (*Tree, error) {
	t := &Tree{Nodes: make(map[string]*node.Node, len(s.Nodes))}
	for _, spec := range s.Nodes {
		opts, err := spec.options()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.Name, err)
		}
		t.Nodes[spec.Name] = node.New(spec.Name, opts...)
	}
	for _, spec := range s.Nodes {
		if len(spec.Children) == 0 {
			continue
		}
		children := make([]stage.Node, len(spec.Children))
		for i, c := range spec.Children {
			children[i] = t.Nodes[c]
		}
		t.Nodes[spec.Name].SetChildren(children...)
	}
	t.Root = t.Nodes[s.RootName()]
	return t, nil
}

func (spec *NodeSpec) options() ([]node.Option, error) {
	m, err := transform(spec.Translate, spec.Scale, spec.Rotate)
	if err != nil {
		return nil, err
	}
	opts := []node.Option{node.WithTransform(m)}
	p, err := spec.painter()
	if err != nil {
		return nil, err
	}
	if p != nil {
		opts = append(opts, node.WithPainter(p))
	}
	if len(spec.Hint) > 0 {
		h, err := renderers(spec.Hint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, node.WithRendererHint(h))
	}
	if spec.Opacity != nil {
		opts = append(opts, node.WithOpacity(*spec.Opacity))
	}
	if spec.Isolated {
		opts = append(opts, node.WithIsolation())
	}
	if spec.SharedCache {
		opts = append(opts, node.WithSharedCache())
	}
	if spec.Hidden {
		opts = append(opts, node.Hidden())
	}
	if len(spec.Clip) > 0 {
		if len(spec.Clip) != 4 {
			return nil, invalid("clip needs [x, y, width, height]")
		}
		opts = append(opts, node.WithClip(stage.RectXYWH(spec.Clip[0], spec.Clip[1], spec.Clip[2], spec.Clip[3])))
	}
	if spec.Cursor != "" {
		opts = append(opts, node.WithCursor(spec.Cursor))
	}
	return opts, nil
}

func (spec *NodeSpec) painter() (stage.Painter, error) {
	fill, err := optionalColor(spec.Fill)
	if err != nil {
		return nil, err
	}
	stroke, err := optionalColor(spec.Stroke)
	if err != nil {
		return nil, err
	}
	sup, err := renderers(spec.Supports)
	if err != nil {
		return nil, err
	}
	switch spec.Shape {
	case "":
		return nil, nil
	case "rect":
		return &node.Rect{
			X: spec.X, Y: spec.Y, Width: spec.Width, Height: spec.Height,
			Fill: fill, Stroke: stroke, LineWidth: spec.LineWidth, Supports: sup,
		}, nil
	case "circle":
		return &node.Circle{
			X: spec.X, Y: spec.Y, Radius: spec.Radius,
			Fill: fill, Stroke: stroke, LineWidth: spec.LineWidth, Supports: sup,
		}, nil
	case "polyline":
		pts := make([][2]float64, len(spec.Points))
		for i, p := range spec.Points {
			if len(p) != 2 {
				return nil, invalid("point %d needs [x, y]", i)
			}
			pts[i] = [2]float64{p[0], p[1]}
		}
		return &node.Polyline{
			Points: pts, Fill: fill, Stroke: stroke, LineWidth: spec.LineWidth, Supports: sup,
		}, nil
	default:
		return nil, invalid("unknown shape %q", spec.Shape)
	}
}

// optionalColor parses a hex colour; an empty string is no colour.
func optionalColor(s string) (color.Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := gg.ParseHex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return c, nil
}

func renderers(names []string) (stage.Renderer, error) {
	var r stage.Renderer
	for _, name := range names {
		b, err := stage.ParseRenderer(name)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
		r |= b
	}
	return r, nil
}

// transform composes translate * rotate * scale.
func transform(translate, scale []float64, degrees float64) (gg.Matrix, error) {
	m := gg.Identity()
	if len(translate) > 0 {
		if len(translate) != 2 {
			return m, invalid("translate needs [x, y]")
		}
		m = m.Multiply(gg.Translate(translate[0], translate[1]))
	}
	if degrees != 0 {
		m = m.Multiply(gg.Rotate(degrees * math.Pi / 180))
	}
	if len(scale) > 0 {
		if len(scale) != 2 {
			return m, invalid("scale needs [x, y]")
		}
		m = m.Multiply(gg.Scale(scale[0], scale[1]))
	}
	return m, nil
}
