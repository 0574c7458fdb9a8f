//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/liveview"
)

// Embedded WGSL shader source for live-view presentation.
//
//go:embed shaders/liveview.wgsl
var liveviewShaderSource string

// samplerBinding is the binding index of the frame sampler within bind
// group 1. It rides alongside liveview.TextureSlotBaseColor and is an
// internal detail of the pipeline, not part of the public slot registry.
const samplerBinding = 1

// targetFormat is the color format of the presentation target.
const targetFormat = gputypes.TextureFormatBGRA8Unorm

// Pipeline holds the GPU objects realizing the live-view binding
// contract: the compiled shader, the two bind group layouts (group 0 =
// buffer bindings, group 1 = texture bindings), the frame sampler, and
// the render pipeline itself.
//
// The pipeline renders opaque triangles with no blending: the preview
// replaces whatever is under it.
type Pipeline struct {
	device hal.Device
	queue  hal.Queue

	shader         hal.ShaderModule
	viewportLayout hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout
	pipeLayout     hal.PipelineLayout
	pipeline       hal.RenderPipeline
	sampler        hal.Sampler
}

// NewPipeline creates an empty pipeline bound to the given device and
// queue. GPU objects are not created until Create is called.
func NewPipeline(device hal.Device, queue hal.Queue) *Pipeline {
	return &Pipeline{
		device: device,
		queue:  queue,
	}
}

// Create compiles the shader and creates all pipeline objects. Any
// failure is a setup fault: the error is returned once and the
// partially created objects are released.
func (p *Pipeline) Create() error {
	shader, err := compileShader(p.device, "liveview_shader", liveviewShaderSource)
	if err != nil {
		p.Destroy()
		return err
	}
	p.shader = shader

	// Group 0: viewport-size uniform at the slot fixed by the contract.
	viewportLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "liveview_viewport_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    uint32(liveview.BufferSlotViewportSize),
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		p.Destroy()
		return fmt.Errorf("create viewport bind group layout: %w", err)
	}
	p.viewportLayout = viewportLayout

	// Group 1: base-color frame texture + filtering sampler.
	textureLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "liveview_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    uint32(liveview.TextureSlotBaseColor),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    samplerBinding,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.Destroy()
		return fmt.Errorf("create texture bind group layout: %w", err)
	}
	p.textureLayout = textureLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "liveview_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.viewportLayout, p.textureLayout},
	})
	if err != nil {
		p.Destroy()
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	// Linear filtering: the frame rarely matches the quad size exactly,
	// so the sampler interpolates between texels.
	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "liveview_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		p.Destroy()
		return fmt.Errorf("create sampler: %w", err)
	}
	p.sampler = sampler

	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "liveview_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy()
		return fmt.Errorf("create render pipeline: %w", err)
	}
	p.pipeline = pipeline

	return nil
}

// Destroy releases all pipeline resources in reverse creation order.
// Safe to call multiple times or on a partially created pipeline.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.viewportLayout != nil {
		p.device.DestroyBindGroupLayout(p.viewportLayout)
		p.viewportLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// vertexLayout returns the vertex buffer layout for the live-view
// pipeline. Matches VertexInput in shaders/liveview.wgsl and the byte
// layout of liveview.Vertex:
//
//	location 0: position (vec2<f32>) at offset 0
//	location 1: tex_coord (vec2<f32>) at offset 8
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: liveview.VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // tex_coord
			},
		},
	}
}

// GetShaderSource returns the embedded WGSL source. Contract tests use
// it to verify the shader-side declarations against the Go constants.
func GetShaderSource() string {
	return liveviewShaderSource
}
