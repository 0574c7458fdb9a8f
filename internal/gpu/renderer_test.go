//go:build !nogpu

package gpu

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/liveview"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// makeTestFrame builds a valid RGBA frame filled with a simple gradient.
func makeTestFrame(w, h int, seq uint64) *liveview.Frame {
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			data[i+0] = byte(x)
			data[i+1] = byte(y)
			data[i+2] = byte(seq)
			data[i+3] = 0xFF
		}
	}
	return &liveview.Frame{
		Data:      data,
		Width:     w,
		Height:    h,
		Timestamp: time.Now(),
		Seq:       seq,
	}
}

func TestNewRenderer(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	if r.pipeline == nil || r.pipeline.pipeline == nil {
		t.Error("expected pipeline to be created")
	}
	if r.HasFrame() {
		t.Error("expected no frame before UploadFrame")
	}
}

func TestRendererPrepareFrameNoFrame(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	_, err = r.PrepareFrame(liveview.ViewportSize{W: 800, H: 600}, liveview.ScaleStretch)
	if !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
}

func TestRendererPrepareFrameInvalidViewport(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	if err := r.UploadFrame(makeTestFrame(16, 16, 1)); err != nil {
		t.Fatalf("UploadFrame failed: %v", err)
	}

	for _, vp := range []liveview.ViewportSize{
		{W: 0, H: 600},
		{W: 800, H: 0},
		{W: -800, H: 600},
		{W: 0.5, H: 0.5},
	} {
		_, err := r.PrepareFrame(vp, liveview.ScaleStretch)
		if !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("viewport %+v: expected ErrInvalidViewport, got %v", vp, err)
		}
	}
}

func TestRendererPrepareFrame(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	if err := r.UploadFrame(makeTestFrame(64, 48, 1)); err != nil {
		t.Fatalf("UploadFrame failed: %v", err)
	}

	res, err := r.PrepareFrame(liveview.ViewportSize{W: 800, H: 600}, liveview.ScaleAspectFit)
	if err != nil {
		t.Fatalf("PrepareFrame failed: %v", err)
	}
	defer r.DestroyFrameResources(res)

	if res.vertBuf == nil {
		t.Error("expected non-nil vertex buffer")
	}
	if res.uniformBuf == nil {
		t.Error("expected non-nil uniform buffer")
	}
	if res.viewportBind == nil {
		t.Error("expected non-nil viewport bind group")
	}
	if res.textureBind == nil {
		t.Error("expected non-nil texture bind group")
	}
	if res.vertexCount != liveview.QuadVertexCount {
		t.Errorf("vertexCount = %d, expected %d", res.vertexCount, liveview.QuadVertexCount)
	}
}

func TestRendererRecordDraws(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	if err := r.UploadFrame(makeTestFrame(32, 32, 1)); err != nil {
		t.Fatalf("UploadFrame failed: %v", err)
	}
	res, err := r.PrepareFrame(liveview.ViewportSize{W: 256, H: 256}, liveview.ScaleStretch)
	if err != nil {
		t.Fatalf("PrepareFrame failed: %v", err)
	}
	defer r.DestroyFrameResources(res)

	if err := r.ensureTarget(256, 256); err != nil {
		t.Fatalf("ensureTarget failed: %v", err)
	}

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "record_test"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if err := encoder.BeginEncoding("record_test"); err != nil {
		t.Fatalf("BeginEncoding failed: %v", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "record_test_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       r.targetView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	r.RecordDraws(rp, res)
	rp.End()
	encoder.DiscardEncoding()

	// The vertex data binds at the slot the contract names, the same
	// index the vertex layout occupies in the pipeline descriptor.
	if got := uint32(liveview.BufferSlotVertices); got != 0 {
		t.Errorf("BufferSlotVertices = %d, expected vertex-buffer slot 0", got)
	}
}

func TestRendererRenderFrame(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	if err := r.UploadFrame(makeTestFrame(64, 48, 1)); err != nil {
		t.Fatalf("UploadFrame failed: %v", err)
	}

	img, err := r.RenderFrame(liveview.ViewportSize{W: 128, H: 96}, liveview.ScaleStretch)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 128 || got.Dy() != 96 {
		t.Errorf("image bounds = %v, expected 128x96", got)
	}
}

func TestRendererRenderFrameResize(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	if err := r.UploadFrame(makeTestFrame(32, 32, 1)); err != nil {
		t.Fatalf("UploadFrame failed: %v", err)
	}

	img, err := r.RenderFrame(liveview.ViewportSize{W: 800, H: 600}, liveview.ScaleStretch)
	if err != nil {
		t.Fatalf("first RenderFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Errorf("first image bounds = %v, expected 800x600", img.Bounds())
	}

	// Viewport shrinks mid-run; the target is recreated at the new size.
	img, err = r.RenderFrame(liveview.ViewportSize{W: 400, H: 300}, liveview.ScaleStretch)
	if err != nil {
		t.Fatalf("second RenderFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("second image bounds = %v, expected 400x300", img.Bounds())
	}
	if r.width != 400 || r.height != 300 {
		t.Errorf("target size = (%d, %d), expected (400, 300)", r.width, r.height)
	}
}

func TestRendererUploadRejectsInvalidFrame(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	err = r.UploadFrame(&liveview.Frame{Width: 8, Height: 8, Data: make([]byte, 7)})
	if !errors.Is(err, liveview.ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}
	if r.HasFrame() {
		t.Error("rejected upload must not mark a frame as present")
	}
}

func TestRendererDestroy(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	if err := r.UploadFrame(makeTestFrame(16, 16, 1)); err != nil {
		t.Fatalf("UploadFrame failed: %v", err)
	}
	if _, err := r.RenderFrame(liveview.ViewportSize{W: 64, H: 64}, liveview.ScaleStretch); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	r.Destroy()

	if r.targetTex != nil || r.targetView != nil {
		t.Error("expected nil target after Destroy")
	}
	if r.HasFrame() {
		t.Error("expected no frame after Destroy")
	}

	// Double-destroy should be safe.
	r.Destroy()
}

func TestDestroyFrameResourcesNil(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewRenderer(device, queue)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Destroy()

	// Nil resources should not panic.
	r.DestroyFrameResources(nil)
}

func TestSwizzleBGRAToRGBA(t *testing.T) {
	src := []byte{
		0x01, 0x02, 0x03, 0x04, // BGRA
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	dst := make([]byte, len(src))
	swizzleBGRAToRGBA(src, dst)

	want := []byte{
		0x03, 0x02, 0x01, 0x04, // RGBA
		0xCC, 0xBB, 0xAA, 0xDD,
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %#x, expected %#x", i, dst[i], want[i])
		}
	}
}
