// Package gpu implements the WebGPU rendering backend for liveview
// using gogpu/wgpu HAL.
//
// The package owns three concerns:
//
//   - Pipeline: the render pipeline whose bind-group and vertex layouts
//     realize the binding-slot contract declared in the root package.
//   - frameTextures: the double-buffered pair of frame textures; uploads
//     always write the back texture so the front is never mutated while
//     bound for sampling.
//   - Renderer: per-frame draw setup (quad vertices, viewport uniform,
//     bind groups) plus an offscreen render-and-readback path and a
//     RecordDraws entry point for host-owned render passes.
//
// Build with -tags nogpu to exclude this package and its wgpu
// dependency from the build.
package gpu
