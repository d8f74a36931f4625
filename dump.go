package stage

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

var (
	dumpDirtyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dumpMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dumpBlockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dumpEnumStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginRight(1)
)

// DebugDump renders the instance tree with drawable counts and dirty
// markers, followed by the root block list.
func (d *Display) DebugDump() string {
	var b strings.Builder
	c := d.Counts()
	fmt.Fprintf(&b, "display %s  frame %d  %s\n", d.id, d.frame, d.phase)
	fmt.Fprintf(&b, "instances %d  drawables %d  blocks %d  backbones %d  shared %d\n",
		c.Instances, c.Drawables, c.Blocks, c.Backbones, c.SharedCaches)
	if d.rootInstance == nil {
		b.WriteString(dumpMutedStyle.Render("(not synchronized)"))
		b.WriteByte('\n')
		return b.String()
	}
	b.WriteString(d.rootInstance.dumpTree().String())
	b.WriteByte('\n')

	blocks := tree.Root("blocks").
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(dumpEnumStyle)
	for _, blk := range d.rootBB.blocks() {
		blocks.Child(dumpBlock(blk))
	}
	b.WriteString(blocks.String())
	b.WriteByte('\n')
	return b.String()
}

func (in *Instance) dumpTree() *tree.Tree {
	t := tree.Root(in.dumpLabel()).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(dumpEnumStyle)
	for _, c := range in.children {
		t.Child(c.dumpTree())
	}
	return t
}

func (in *Instance) dumpLabel() string {
	var b strings.Builder
	b.WriteString(nodeLabel(in.node))
	drs := in.drawableList()
	fmt.Fprintf(&b, " [%d drawables", len(drs))
	for _, dr := range drs {
		fmt.Fprintf(&b, " %s:%s%s", dr.role, dr.renderer, dr.id)
	}
	b.WriteByte(']')
	if !in.visible {
		b.WriteString(dumpMutedStyle.Render(" hidden"))
	}
	if in.subtreeDirty {
		b.WriteString(dumpDirtyStyle.Render(" *"))
	}
	for _, dr := range drs {
		if dr.dirty {
			b.WriteString(dumpDirtyStyle.Render(" dirty"))
			break
		}
	}
	return b.String()
}

func dumpBlock(blk *Block) *tree.Tree {
	label := dumpBlockStyle.Render(blk.String())
	if blk.dirty {
		label += dumpDirtyStyle.Render(" dirty")
	}
	t := tree.Root(label).Enumerator(tree.RoundedEnumerator).EnumeratorStyle(dumpEnumStyle)
	for _, dr := range blk.Drawables() {
		t.Child(fmt.Sprintf("%s %s %s", dr.id, dr.role, nodeLabel(dr.instance.node)))
		if dr.role == RoleGroup && dr.group != nil {
			for _, nb := range dr.group.blocks() {
				t.Child(dumpBlock(nb))
			}
		}
	}
	return t
}
