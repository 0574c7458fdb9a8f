//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/liveview"
	internalgpu "github.com/gogpu/liveview/internal/gpu"
)

// DeviceHandle provides GPU device access from a host application.
//
// It is an alias for gpucontext.DeviceProvider, so any host in the
// gpucontext ecosystem (for example a gogpu App) can hand its device to
// a Viewer without an adapter layer.
type DeviceHandle = gpucontext.DeviceProvider

// ErrViewerClosed is returned by operations on a closed Viewer.
var ErrViewerClosed = errors.New("liveview: viewer is closed")

// ErrNoFrame is returned by RenderFrame before the first frame has been
// published.
var ErrNoFrame = internalgpu.ErrNoFrame

// Config holds Viewer construction options. The zero value is usable.
type Config struct {
	// ScaleMode selects how frames are fitted into the viewport.
	// Default is ScaleStretch.
	ScaleMode liveview.ScaleMode

	// MaxFrameEdge bounds the longer edge of frames converted through
	// PublishImage; larger sources are downscaled before upload.
	// Zero disables the bound.
	MaxFrameEdge int
}

// Viewer renders a live camera-preview stream. It is safe for
// concurrent use: the producer publishes frames from its delivery
// goroutine while the display goroutine renders.
type Viewer struct {
	cfg     Config
	mailbox liveview.FrameMailbox
	seq     atomic.Uint64

	mu             sync.Mutex
	instance       hal.Instance
	device         hal.Device
	queue          hal.Queue
	externalDevice bool
	renderer       *internalgpu.Renderer

	closed atomic.Bool
}

// NewViewer creates a Viewer with its own standalone Vulkan device.
// This is the path for headless use or hosts outside the gpucontext
// ecosystem; windowed applications share their device through
// NewViewerWithProvider instead.
func NewViewer(cfg Config) (*Viewer, error) {
	v := &Viewer{cfg: cfg}
	if err := v.initGPU(); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// NewViewerWithProvider creates a Viewer on a shared GPU device from an
// external provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue; gpucontext device
// providers do. The Viewer does not destroy a shared device on Close.
func NewViewerWithProvider(provider any, cfg Config) (*Viewer, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("liveview: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("liveview: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("liveview: provider HalQueue is not hal.Queue")
	}

	v := &Viewer{
		cfg:            cfg,
		device:         device,
		queue:          queue,
		externalDevice: true,
	}
	renderer, err := internalgpu.NewRenderer(device, queue)
	if err != nil {
		return nil, fmt.Errorf("liveview: %w", err)
	}
	v.renderer = renderer
	liveview.Logger().Debug("viewer attached to shared GPU device")
	return v, nil
}

// initGPU creates a standalone Vulkan device and the renderer on it.
func (v *Viewer) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("liveview: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("liveview: create instance: %w", err)
	}
	v.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("liveview: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("liveview: open device: %w", err)
	}
	v.device = openDev.Device
	v.queue = openDev.Queue

	renderer, err := internalgpu.NewRenderer(v.device, v.queue)
	if err != nil {
		return fmt.Errorf("liveview: %w", err)
	}
	v.renderer = renderer

	liveview.Logger().Info("viewer GPU initialized (standalone)", "adapter", selected.Info.Name)
	return nil
}

// newViewerOn builds a Viewer on an already open device and queue.
// Test hook; production callers go through NewViewer or
// NewViewerWithProvider.
func newViewerOn(device hal.Device, queue hal.Queue, cfg Config) (*Viewer, error) {
	renderer, err := internalgpu.NewRenderer(device, queue)
	if err != nil {
		return nil, err
	}
	return &Viewer{
		cfg:            cfg,
		device:         device,
		queue:          queue,
		externalDevice: true,
		renderer:       renderer,
	}, nil
}

// Publish hands a camera frame to the display side. Never blocks: an
// unconsumed previous frame is overwritten. The frame's Seq is assigned
// here; Data must not be modified after the call. Returns
// ErrViewerClosed after Close.
func (v *Viewer) Publish(frame *liveview.Frame) error {
	if v.closed.Load() {
		return ErrViewerClosed
	}
	if err := frame.Validate(); err != nil {
		return err
	}
	frame.Seq = v.seq.Add(1)
	v.mailbox.Publish(frame)
	return nil
}

// PublishImage converts any image.Image into a frame and publishes it,
// downscaling to the configured MaxFrameEdge when set. Convenience for
// capture paths that decode into image.YCbCr or image.RGBA.
func (v *Viewer) PublishImage(img image.Image) error {
	frame, err := liveview.FrameFromImage(img, v.cfg.MaxFrameEdge)
	if err != nil {
		return err
	}
	return v.Publish(frame)
}

// RenderFrame draws the newest published frame into an offscreen target
// of the given viewport size and returns the pixels. When no new frame
// has arrived since the last call, the previously uploaded frame is
// redrawn; the very first call fails with ErrNoFrame until a frame has
// been published.
//
// Called once per display refresh from a single goroutine.
func (v *Viewer) RenderFrame(viewport liveview.ViewportSize) (*image.RGBA, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed.Load() {
		return nil, ErrViewerClosed
	}

	if frame := v.mailbox.Take(); frame != nil {
		if err := v.renderer.UploadFrame(frame); err != nil {
			return nil, err
		}
	}
	return v.renderer.RenderFrame(viewport, v.cfg.ScaleMode)
}

// Drops returns the number of published frames overwritten before the
// display consumed them. Growing under load is normal.
func (v *Viewer) Drops() uint64 {
	return v.mailbox.Drops()
}

// FramesShown returns the number of frames the display side consumed.
func (v *Viewer) FramesShown() uint64 {
	return v.mailbox.Taken()
}

// Close releases the renderer and, when the Viewer owns its device, the
// device and instance. Safe to call multiple times.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed.CompareAndSwap(false, true) {
		return
	}

	if v.renderer != nil {
		v.renderer.Destroy()
		v.renderer = nil
	}
	if !v.externalDevice {
		if v.device != nil {
			v.device.Destroy()
			v.device = nil
		}
		if v.instance != nil {
			v.instance.Destroy()
			v.instance = nil
		}
	} else {
		// Shared resources belong to the host.
		v.device = nil
		v.instance = nil
	}
	v.queue = nil
}
