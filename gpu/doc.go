// Package gpu exposes the live-view GPU surface: a Viewer that owns
// the device, the frame mailbox, and the renderer.
//
// The camera side calls Publish (or PublishImage) at capture cadence;
// the display side calls RenderFrame once per refresh. Neither side
// blocks the other.
//
// Building with -tags nogpu removes the Viewer and the wgpu dependency;
// only the root liveview package remains usable.
package gpu
