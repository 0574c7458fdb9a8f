package liveview

import (
	"encoding/binary"
	"math"
)

// BufferSlot identifies a logical buffer input shared between host-side
// bind calls and the vertex shader's declared inputs. The values are part
// of the host/GPU contract: the WGSL shader in internal/gpu declares its
// inputs at these indices, and the render pass binds buffers at them.
// A mismatch is a programming defect caught by the contract tests, not a
// runtime-recoverable error.
type BufferSlot uint32

const (
	// BufferSlotVertices is the vertex-buffer slot carrying the quad
	// geometry (one Vertex per corner, two triangles).
	BufferSlotVertices BufferSlot = 0

	// BufferSlotViewportSize is the binding index of the viewport-size
	// uniform (vec2<f32>) within bind group 0.
	BufferSlotViewportSize BufferSlot = 1
)

// TextureSlot identifies a logical texture input. Texture slots are a
// separate numbering space from buffer slots: textures are bound through
// bind group 1, so index 0 may be reused without collision.
type TextureSlot uint32

// TextureSlotBaseColor is the binding index of the live camera frame
// texture within bind group 1.
const TextureSlotBaseColor TextureSlot = 0

// VertexStride is the byte stride per vertex: 4 float32 words
// (position.x, position.y, tex_coord.x, tex_coord.y), no padding.
// Must match the vertex buffer layout declared to the pipeline and the
// VertexInput struct in shaders/liveview.wgsl.
const VertexStride = 16

// Vertex is one corner of the rendered quad. The field order and byte
// layout cross the host/GPU boundary as raw bytes with no schema
// negotiation, so they must match the shader's input declaration exactly:
// two consecutive 2-component float32 vectors.
type Vertex struct {
	// Position in pixel space with the origin at the drawable's center.
	// A value of 100 means 100 pixels from center.
	Position [2]float32

	// TexCoord is the normalized texture coordinate in [0,1]x[0,1],
	// (0,0) at the source frame's top-left.
	TexCoord [2]float32
}

// Encode appends the vertex to dst as 4 little-endian float32 words and
// returns the extended slice. The wire layout matches VertexStride.
func (v Vertex) Encode(dst []byte) []byte {
	var buf [VertexStride]byte
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.TexCoord[1]))
	return append(dst, buf[:]...)
}

// ViewportSize is the drawable size in pixels, supplied by the owning
// view/window once per display frame and uploaded as a uniform at
// BufferSlotViewportSize.
type ViewportSize struct {
	W, H float32
}

// Valid reports whether both dimensions are at least one pixel. A
// zero-sized or sub-pixel viewport is a setup fault; the renderer
// refuses to draw into one rather than truncate it to an empty target.
func (s ViewportSize) Valid() bool {
	return s.W >= 1 && s.H >= 1
}

// ViewportUniformSize is the byte size of the viewport uniform buffer.
// Layout: size (vec2<f32>) + padding (vec2<f32>) = 16 bytes.
const ViewportUniformSize = 16

// EncodeUniform returns the 16-byte uniform buffer contents for the
// viewport size: two little-endian float32 words plus 8 bytes of padding
// to satisfy WGSL uniform alignment.
func (s ViewportSize) EncodeUniform() []byte {
	buf := make([]byte, ViewportUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(s.W))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(s.H))
	return buf
}

// NDC maps a pixel-space position to normalized device coordinates by
// dividing each axis by half the viewport size. A vertex at
// (W/2, H/2) maps to (1, 1); one at (-W/2, -H/2) maps to (-1, -1).
// This is the geometric policy the Vertex/ViewportSize pairing exists to
// support; the vertex shader reproduces it exactly (clip-space +Y is up,
// matching the centered pixel-space convention, so no axis flip occurs).
func (s ViewportSize) NDC(pos [2]float32) [2]float32 {
	return [2]float32{
		pos[0] / (s.W / 2),
		pos[1] / (s.H / 2),
	}
}
