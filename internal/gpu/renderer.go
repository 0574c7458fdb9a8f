//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/liveview"
)

var (
	// ErrNoFrame is returned when a draw is requested before any camera
	// frame has been uploaded.
	ErrNoFrame = errors.New("gpu: no frame uploaded")

	// ErrInvalidViewport is returned when the viewport has a
	// non-positive dimension. Drawing into such a viewport would divide
	// by zero in the vertex stage, so the renderer rejects it up front.
	ErrInvalidViewport = errors.New("gpu: invalid viewport size")
)

// gpuWaitTimeout bounds how long a readback waits for the GPU.
const gpuWaitTimeout = 5 * time.Second

// FrameResources holds the per-frame GPU objects for one preview draw:
// the quad vertex buffer, the viewport uniform, and the two bind
// groups. Built by PrepareFrame, consumed by RecordDraws, released by
// DestroyFrameResources.
type FrameResources struct {
	vertBuf      hal.Buffer
	uniformBuf   hal.Buffer
	viewportBind hal.BindGroup
	textureBind  hal.BindGroup
	vertexCount  uint32
}

// Renderer draws the most recently uploaded camera frame as a textured
// quad. It owns the pipeline, the double-buffered frame textures, and
// an offscreen presentation target used for headless rendering and
// readback.
//
// Renderer is not safe for concurrent use. Callers serialize access,
// typically by driving it from a single display goroutine.
type Renderer struct {
	device hal.Device
	queue  hal.Queue

	pipeline *Pipeline
	textures *frameTextures

	// Offscreen presentation target, sized to the last viewport.
	targetTex  hal.Texture
	targetView hal.TextureView
	width      uint32
	height     uint32

	haveFrame bool
}

// NewRenderer creates a renderer on the given device and queue and
// builds its pipeline. The caller owns the device and queue.
func NewRenderer(device hal.Device, queue hal.Queue) (*Renderer, error) {
	r := &Renderer{
		device:   device,
		queue:    queue,
		pipeline: NewPipeline(device, queue),
		textures: newFrameTextures(device, queue),
	}
	if err := r.pipeline.Create(); err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return r, nil
}

// UploadFrame copies a validated camera frame into the back texture and
// makes it the current preview source.
func (r *Renderer) UploadFrame(frame *liveview.Frame) error {
	if err := r.textures.Upload(frame); err != nil {
		return err
	}
	r.haveFrame = true
	return nil
}

// HasFrame reports whether at least one frame has been uploaded.
func (r *Renderer) HasFrame() bool {
	return r.haveFrame
}

// PrepareFrame builds the per-draw GPU resources for the current
// preview frame: the quad vertices fitted to the viewport under the
// given scale mode, the viewport uniform, and the bind groups wiring
// them to the pipeline. Fails fast when no frame is uploaded or the
// viewport is degenerate.
func (r *Renderer) PrepareFrame(viewport liveview.ViewportSize, mode liveview.ScaleMode) (*FrameResources, error) {
	if !viewport.Valid() {
		return nil, ErrInvalidViewport
	}
	if !r.haveFrame {
		return nil, ErrNoFrame
	}

	frameW, frameH := r.textures.Size()
	quad := liveview.FrameQuad(viewport, frameW, frameH, mode)
	vertBuf, err := r.createAndUploadBuffer("liveview_quad_verts",
		liveview.EncodeQuad(quad), gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	uniformBuf, err := r.createAndUploadBuffer("liveview_viewport_uniform",
		viewport.EncodeUniform(), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		r.device.DestroyBuffer(vertBuf)
		return nil, err
	}

	viewportBind, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "liveview_viewport_bind",
		Layout: r.pipeline.viewportLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: uint32(liveview.BufferSlotViewportSize), Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: liveview.ViewportUniformSize,
			}},
		},
	})
	if err != nil {
		r.device.DestroyBuffer(uniformBuf)
		r.device.DestroyBuffer(vertBuf)
		return nil, fmt.Errorf("create viewport bind group: %w", err)
	}

	textureBind, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "liveview_texture_bind",
		Layout: r.pipeline.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: uint32(liveview.TextureSlotBaseColor), Resource: gputypes.TextureViewBinding{
				TextureView: uintptr(r.textures.FrontView().NativeHandle()),
			}},
			{Binding: samplerBinding, Resource: gputypes.SamplerBinding{
				Sampler: uintptr(r.pipeline.sampler.NativeHandle()),
			}},
		},
	})
	if err != nil {
		r.device.DestroyBindGroup(viewportBind)
		r.device.DestroyBuffer(uniformBuf)
		r.device.DestroyBuffer(vertBuf)
		return nil, fmt.Errorf("create texture bind group: %w", err)
	}

	return &FrameResources{
		vertBuf:      vertBuf,
		uniformBuf:   uniformBuf,
		viewportBind: viewportBind,
		textureBind:  textureBind,
		vertexCount:  liveview.QuadVertexCount,
	}, nil
}

// RecordDraws records the preview quad draw into an existing render
// pass. The render pass is owned by the caller.
func (r *Renderer) RecordDraws(rp hal.RenderPassEncoder, res *FrameResources) {
	rp.SetPipeline(r.pipeline.pipeline)
	rp.SetBindGroup(0, res.viewportBind, nil)
	rp.SetBindGroup(1, res.textureBind, nil)
	rp.SetVertexBuffer(uint32(liveview.BufferSlotVertices), res.vertBuf, 0)
	rp.Draw(res.vertexCount, 1, 0, 0)
}

// DestroyFrameResources releases per-frame GPU objects. Safe to call
// with nil.
func (r *Renderer) DestroyFrameResources(res *FrameResources) {
	if res == nil {
		return
	}
	if res.textureBind != nil {
		r.device.DestroyBindGroup(res.textureBind)
	}
	if res.viewportBind != nil {
		r.device.DestroyBindGroup(res.viewportBind)
	}
	if res.uniformBuf != nil {
		r.device.DestroyBuffer(res.uniformBuf)
	}
	if res.vertBuf != nil {
		r.device.DestroyBuffer(res.vertBuf)
	}
}

// RenderFrame renders the current preview frame into an offscreen
// target sized to the viewport, reads the pixels back, and returns
// them as an RGBA image. Headless path used by the demo and by tests;
// windowed callers record into their own render pass via PrepareFrame
// and RecordDraws instead.
func (r *Renderer) RenderFrame(viewport liveview.ViewportSize, mode liveview.ScaleMode) (*image.RGBA, error) {
	res, err := r.PrepareFrame(viewport, mode)
	if err != nil {
		return nil, err
	}
	defer r.DestroyFrameResources(res)

	w := uint32(viewport.W) //nolint:gosec // Valid() rejects sizes below one pixel
	h := uint32(viewport.H) //nolint:gosec // Valid() rejects sizes below one pixel
	if err := r.ensureTarget(w, h); err != nil {
		return nil, err
	}

	return r.encodeAndReadback(w, h, res)
}

// ensureTarget creates or recreates the offscreen presentation target
// when the viewport size changes.
func (r *Renderer) ensureTarget(w, h uint32) error {
	if r.targetTex != nil && r.width == w && r.height == h {
		return nil
	}
	r.destroyTarget()

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "liveview_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create target texture: %w", err)
	}
	r.targetTex = tex

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "liveview_target_view",
		Format:        targetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.destroyTarget()
		return fmt.Errorf("create target view: %w", err)
	}
	r.targetView = view

	r.width = w
	r.height = h
	slogger().Debug("presentation target allocated", "width", w, "height", h)
	return nil
}

// encodeAndReadback records the preview render pass, copies the target
// to a staging buffer, submits, waits, and converts the BGRA pixels to
// an RGBA image.
func (r *Renderer) encodeAndReadback(w, h uint32, res *FrameResources) (*image.RGBA, error) {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "liveview_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("liveview_render"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "liveview_pass",
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

	// After the pass the target is in render-attachment layout.
	// CopyTextureToBuffer needs a transfer-source layout, so insert an
	// explicit transition. No-op on non-Vulkan backends.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.targetTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	pixelBufSize := uint64(w) * uint64(h) * 4
	stagingBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "liveview_staging",
		Size:  pixelBufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(r.targetTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: r.targetTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, pixelBufSize)
	if err := r.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	swizzleBGRAToRGBA(readback, img.Pix)
	return img, nil
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (r *Renderer) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	r.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (r *Renderer) destroyTarget() {
	if r.targetView != nil {
		r.device.DestroyTextureView(r.targetView)
		r.targetView = nil
	}
	if r.targetTex != nil {
		r.device.DestroyTexture(r.targetTex)
		r.targetTex = nil
	}
	r.width = 0
	r.height = 0
}

// Destroy releases all renderer resources. Safe to call multiple times.
func (r *Renderer) Destroy() {
	r.destroyTarget()
	if r.textures != nil {
		r.textures.Destroy()
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
	}
	r.haveFrame = false
}

// swizzleBGRAToRGBA converts BGRA pixel data into dst, which must be at
// least as long as src. Channel order swap only, alpha passes through.
func swizzleBGRAToRGBA(src, dst []byte) {
	n := len(src) / 4 * 4
	for i := 0; i < n; i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}
