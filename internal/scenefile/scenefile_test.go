package scenefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/node"
)

const sample = `
[display]
root = "root"
width = 200
height = 100
dpr = 2.0
background = "#ffffff"
renderers = ["svg", "canvas", "dom"]
frames = 5

[[node]]
name = "root"
children = ["box", "dot"]

[[node]]
name = "box"
shape = "rect"
width = 40
height = 20
fill = "#e33"
translate = [10, 5]
hint = ["svg"]

[[node]]
name = "dot"
shape = "circle"
x = 5
y = 5
radius = 5
stroke = "#000"
line_width = 2
opacity = 0.5
clip = [0, 0, 10, 10]

[[node]]
name = "spare"
shape = "polyline"
points = [[0, 0], [10, 0], [10, 10]]
fill = "#0f0"

[[step]]
frame = 2
node = "box"
action = "transform"
translate = [60, 5]

[[step]]
frame = 3
node = "root"
action = "add-child"
child = "spare"
index = 0

[[step]]
frame = 3
node = "box"
action = "fill"
fill = "#00f"
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "root", s.RootName())
	require.Len(t, s.Nodes, 4)
	require.Len(t, s.Steps, 3)
	require.Equal(t, 3, s.LastFrame())
	require.Len(t, s.StepsAt(3), 2)
	require.Empty(t, s.StepsAt(1))
	require.Equal(t, 5, s.Display.Frames)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no nodes", `[display]
width = 10`},
		{"unknown key", `[[node]]
name = "a"
colour = "red"`},
		{"duplicate", `[[node]]
name = "a"
[[node]]
name = "a"`},
		{"unknown child", `[[node]]
name = "a"
children = ["b"]`},
		{"cycle", `[[node]]
name = "a"
children = ["b"]
[[node]]
name = "b"
children = ["a"]`},
		{"unknown root", `[display]
root = "x"
[[node]]
name = "a"`},
		{"unknown action", `[[node]]
name = "a"
[[step]]
node = "a"
action = "explode"`},
		{"unknown step node", `[[node]]
name = "a"
[[step]]
node = "b"
action = "hide"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidScene)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("[[node]\nname = "))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "root", s.RootName())

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	opts, err := s.Options()
	require.NoError(t, err)
	require.Len(t, opts, 4)

	s.Display.Renderers = []string{"svg|canvas"}
	_, err = s.Options()
	require.ErrorIs(t, err, ErrInvalidScene)

	s.Display.Renderers = nil
	s.Display.Background = "nope"
	_, err = s.Options()
	require.ErrorIs(t, err, ErrInvalidScene)
}

func TestBuild(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	tree, err := s.Build()
	require.NoError(t, err)

	require.Same(t, tree.Nodes["root"], tree.Root)
	require.Len(t, tree.Root.Children(), 2)

	box := tree.Nodes["box"]
	require.Equal(t, gg.Translate(10, 5), box.Transform())
	require.Equal(t, stage.RendererSVG, box.RendererHint())
	rect, ok := box.Painter().(*node.Rect)
	require.True(t, ok)
	require.Equal(t, 40.0, rect.Width)
	require.NotNil(t, rect.Fill)
	require.Nil(t, rect.Stroke)

	dot := tree.Nodes["dot"]
	require.Equal(t, 0.5, dot.Opacity())
	clip, ok := dot.Clip()
	require.True(t, ok)
	require.Equal(t, stage.RectXYWH(0, 0, 10, 10), clip)

	_, ok = tree.Nodes["spare"].Painter().(*node.Polyline)
	require.True(t, ok)
}

func TestBuildRejectsBadShape(t *testing.T) {
	s, err := Parse([]byte(`[[node]]
name = "a"
shape = "star"`))
	require.NoError(t, err)
	_, err = s.Build()
	require.ErrorIs(t, err, ErrInvalidScene)
}

func TestApplyFrame(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	tree, err := s.Build()
	require.NoError(t, err)

	require.NoError(t, tree.ApplyFrame(s, 2, nil))
	require.Equal(t, gg.Translate(60, 5), tree.Nodes["box"].Transform())

	require.NoError(t, tree.ApplyFrame(s, 3, nil))
	children := tree.Root.Children()
	require.Len(t, children, 3)
	require.Equal(t, stage.Node(tree.Nodes["spare"]), children[0])

	rect := tree.Nodes["box"].Painter().(*node.Rect)
	want, err := gg.ParseHex("#00f")
	require.NoError(t, err)
	require.Equal(t, want, rect.Fill)
}

func TestApplyErrors(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	tree, err := s.Build()
	require.NoError(t, err)

	err = tree.Apply(Step{Node: "box", Action: ActionAddChild, Child: "root"}, nil)
	require.ErrorIs(t, err, ErrInvalidScene)

	err = tree.Apply(Step{Node: "box", Action: ActionRemoveChild, Child: "dot"}, nil)
	require.Error(t, err)

	err = tree.Apply(Step{Node: "root", Action: ActionFill, Fill: "#fff"}, nil)
	require.Error(t, err)

	err = tree.Apply(Step{Action: ActionResize, Width: 10, Height: 10}, nil)
	require.Error(t, err)
}

func TestApplyToggles(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	tree, err := s.Build()
	require.NoError(t, err)

	box := tree.Nodes["box"]
	steps := []Step{
		{Node: "box", Action: ActionHide},
		{Node: "box", Action: ActionIsolate},
		{Node: "box", Action: ActionShare},
		{Node: "box", Action: ActionOpacity, Opacity: 0.25},
		{Node: "box", Action: ActionCursor, Cursor: "pointer"},
		{Node: "box", Action: ActionHint, Hint: []string{"dom"}},
	}
	for _, st := range steps {
		require.NoError(t, tree.Apply(st, nil), st.Action)
	}
	require.False(t, box.Visible())
	require.True(t, box.Isolated())
	require.True(t, box.SharedCache())
	require.Equal(t, 0.25, box.Opacity())
	require.Equal(t, "pointer", box.Cursor())
	require.Equal(t, stage.RendererDOM, box.RendererHint())

	require.NoError(t, tree.Apply(Step{Node: "box", Action: ActionShow}, nil))
	require.True(t, box.Visible())
}
