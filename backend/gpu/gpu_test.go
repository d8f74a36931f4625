package gpu

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gg"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage"
	"github.com/gogpu/stage/node"
)

type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider without a real device.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device   { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue     { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

func TestCheck(t *testing.T) {
	b := &Backend{}
	if err := b.Check(stage.SurfaceConfig{Width: 10, Height: 10}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Check() without provider = %v, want ErrNoDevice", err)
	}
	if err := b.Check(stage.SurfaceConfig{Width: 0, Height: 10, DeviceProvider: &mockProvider{}}); err == nil {
		t.Error("Check() accepted a zero width")
	}
	if err := b.Check(stage.SurfaceConfig{Width: 10, Height: 10, DeviceProvider: &mockProvider{}}); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestNoProviderNoDisplay(t *testing.T) {
	_, err := stage.New(node.New("root"), stage.WithRenderers(stage.RendererGPU))
	if !errors.Is(err, stage.ErrNoBackend) {
		t.Errorf("stage.New() = %v, want ErrNoBackend", err)
	}
}

func TestUploadsBlock(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	box := node.New("box", node.WithPainter(&node.Rect{Width: 10, Height: 10, Fill: red}))
	root := node.New("root", node.WithChildren(box))
	d, err := stage.New(root,
		stage.WithSize(30, 20),
		stage.WithRenderers(stage.RendererGPU),
		stage.WithDeviceProvider(&mockProvider{}),
		stage.WithAssertions(true))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = d.Dispose() }()

	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}
	blocks := d.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if got := blocks[0].Format(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("block format = %v, want provider format", got)
	}
	s, ok := blocks[0].Surface().(*Surface)
	if !ok {
		t.Fatalf("surface is %T", blocks[0].Surface())
	}
	if s.Uploads != 1 || s.Texture() == nil {
		t.Errorf("Uploads = %d, Texture = %v", s.Uploads, s.Texture())
	}
	if got := d.Image().RGBAAt(5, 5); got != red {
		t.Errorf("pixel (5,5) = %v, want red", got)
	}

	box.SetTransform(gg.Translate(15, 5))
	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}
	if s.Uploads != 2 {
		t.Errorf("Uploads after move = %d, want 2", s.Uploads)
	}
	if got := d.Image().RGBAAt(20, 10); got != red {
		t.Errorf("pixel (20,10) = %v, want red", got)
	}

	if err := d.SetSize(60, 40); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateDisplay(); err != nil {
		t.Fatal(err)
	}
	if got := d.Image().Bounds().Dx(); got != 60 {
		t.Errorf("output width after resize = %d, want 60", got)
	}
}
