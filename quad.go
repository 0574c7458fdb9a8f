package liveview

// Quad corner order for the two triangles:
//
//	TL--TR      triangle 1: TL, TR, BL
//	| \  |      triangle 2: TR, BR, BL
//	BL--BR
//
// Positions use the centered pixel-space convention (+X right, +Y up),
// so TL is (-halfW, +halfH). Texture coordinates pair TL with (0,0)
// because texel rows run top-down.

// QuadVertexCount is the number of vertices produced per quad
// (two triangles, no index buffer).
const QuadVertexCount = 6

// BuildQuad returns the 6 vertices of a quad with corners at
// (±halfW, ±halfH) in pixel space, texture-mapped (0,0)–(1,1).
// With halfW = viewport.W/2 and halfH = viewport.H/2 the quad exactly
// fills the drawable.
func BuildQuad(halfW, halfH float32) [QuadVertexCount]Vertex {
	tl := Vertex{Position: [2]float32{-halfW, halfH}, TexCoord: [2]float32{0, 0}}
	tr := Vertex{Position: [2]float32{halfW, halfH}, TexCoord: [2]float32{1, 0}}
	bl := Vertex{Position: [2]float32{-halfW, -halfH}, TexCoord: [2]float32{0, 1}}
	br := Vertex{Position: [2]float32{halfW, -halfH}, TexCoord: [2]float32{1, 1}}
	return [QuadVertexCount]Vertex{tl, tr, bl, tr, br, bl}
}

// ScaleMode selects how the source frame is fitted into the viewport.
type ScaleMode int

const (
	// ScaleStretch fills the viewport exactly, ignoring the frame's
	// aspect ratio.
	ScaleStretch ScaleMode = iota

	// ScaleAspectFit shows the whole frame, letterboxing the viewport
	// if the aspect ratios differ.
	ScaleAspectFit

	// ScaleAspectFill covers the whole viewport, cropping the frame
	// if the aspect ratios differ.
	ScaleAspectFill
)

// FrameQuad returns the quad for a frame of frameW x frameH pixels
// presented inside the given viewport under the chosen scale mode.
// Vertex positions are recomputed from the current viewport each frame,
// so a resized drawable is covered again on the next draw rather than
// clipped.
func FrameQuad(viewport ViewportSize, frameW, frameH int, mode ScaleMode) [QuadVertexCount]Vertex {
	halfW := viewport.W / 2
	halfH := viewport.H / 2

	if mode != ScaleStretch && frameW > 0 && frameH > 0 {
		frameAspect := float32(frameW) / float32(frameH)
		viewAspect := viewport.W / viewport.H
		switch mode {
		case ScaleAspectFit:
			if frameAspect > viewAspect {
				halfH = halfW / frameAspect
			} else {
				halfW = halfH * frameAspect
			}
		case ScaleAspectFill:
			if frameAspect > viewAspect {
				halfW = halfH * frameAspect
			} else {
				halfH = halfW / frameAspect
			}
		}
	}

	return BuildQuad(halfW, halfH)
}

// EncodeQuad serializes the quad into raw vertex bytes for GPU upload:
// QuadVertexCount x VertexStride bytes, little-endian.
func EncodeQuad(quad [QuadVertexCount]Vertex) []byte {
	data := make([]byte, 0, QuadVertexCount*VertexStride)
	for _, v := range quad {
		data = v.Encode(data)
	}
	return data
}
