package scenefile

import (
	"fmt"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/node"
)

// Apply performs st on the tree. Resize steps act on d.
func (t *Tree) Apply(st Step, d *stage.Display) error {
	if st.Action == ActionResize {
		if d == nil {
			return fmt.Errorf("resize: no display")
		}
		return d.SetSize(st.Width, st.Height)
	}
	n, ok := t.Nodes[st.Node]
	if !ok {
		return invalid("unknown node %q", st.Node)
	}
	switch st.Action {
	case ActionTransform:
		m, err := transform(st.Translate, st.Scale, st.Rotate)
		if err != nil {
			return err
		}
		n.SetTransform(m)
	case ActionHide:
		n.SetVisible(false)
	case ActionShow:
		n.SetVisible(true)
	case ActionFill:
		c, err := optionalColor(st.Fill)
		if err != nil {
			return err
		}
		switch p := n.Painter().(type) {
		case *node.Rect:
			p.Fill = c
		case *node.Circle:
			p.Fill = c
		case *node.Polyline:
			p.Fill = c
		default:
			return fmt.Errorf("fill: node %q has no shape", st.Node)
		}
		n.Invalidate()
	case ActionHint:
		h, err := renderers(st.Hint)
		if err != nil {
			return err
		}
		n.SetRendererHint(h)
	case ActionOpacity:
		n.SetOpacity(st.Opacity)
	case ActionAddChild:
		c := t.Nodes[st.Child]
		if c == nil {
			return invalid("unknown child %q", st.Child)
		}
		if reaches(c, n) {
			return invalid("adding %q under %q creates a cycle", st.Child, st.Node)
		}
		if st.Index != nil {
			n.InsertChild(*st.Index, c)
		} else {
			n.AddChild(c)
		}
	case ActionRemoveChild:
		c := t.Nodes[st.Child]
		if c == nil || !n.RemoveChild(c) {
			return fmt.Errorf("remove-child: %q is not a child of %q", st.Child, st.Node)
		}
	case ActionInvalidate:
		n.Invalidate()
	case ActionCursor:
		n.SetCursor(st.Cursor)
	case ActionIsolate:
		n.SetIsolated(!n.Isolated())
	case ActionShare:
		n.SetSharedCache(!n.SharedCache())
	default:
		return invalid("unknown action %q", st.Action)
	}
	return nil
}

// ApplyFrame performs every step scripted for frame.
func (t *Tree) ApplyFrame(s *Scene, frame int, d *stage.Display) error {
	for _, st := range s.StepsAt(frame) {
		if err := t.Apply(st, d); err != nil {
			return fmt.Errorf("frame %d: %s %s: %w", frame, st.Action, st.Node, err)
		}
	}
	return nil
}

// reaches reports whether target is from or one of its descendants.
func reaches(from, target stage.Node) bool {
	if from == target {
		return true
	}
	for _, c := range from.Children() {
		if reaches(c, target) {
			return true
		}
	}
	return false
}
