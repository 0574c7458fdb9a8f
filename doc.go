// Package liveview presents a live camera-preview stream as a textured
// quad rendered through WebGPU (gogpu/wgpu).
//
// # Overview
//
// A camera delivers decoded frames at its own cadence, in whatever pixel
// dimensions it negotiated; the owning window reports a viewport size
// that changes independently. liveview owns the contract that keeps the
// two sides coherent at draw time:
//
//   - [Vertex] fixes the byte layout of quad corners (pixel-space
//     position + texture coordinate) shared between host buffer
//     construction and the vertex shader's declared inputs.
//   - [BufferSlot] and [TextureSlot] fix the binding indices shared
//     between host bind calls and the WGSL shader source, so the two
//     sides can never silently drift apart.
//   - [FrameMailbox] hands the latest frame from the delivery goroutine
//     to the render loop without blocking or queueing.
//
// The vertex shader maps pixel-space positions to normalized device
// coordinates by dividing by half the viewport size, so a quad built
// with corners at (±W/2, ±H/2) fills the drawable exactly at any size.
//
// # Packages
//
// The root package is GPU-free: contract types, quad geometry, frame
// conversion, and the frame mailbox. The gpu package adds the WebGPU
// renderer and device management:
//
//	import "github.com/gogpu/liveview/gpu"
//
//	viewer, err := gpu.NewViewer(gpu.Config{})
//	...
//	// camera goroutine:
//	viewer.Publish(frame)
//	// display-refresh callback:
//	img, err := viewer.RenderFrame(liveview.ViewportSize{W: 800, H: 600})
//
// # Logging
//
// liveview is silent by default. Call [SetLogger] to enable output.
package liveview
