package liveview

import (
	"testing"
)

func TestBuildQuadCorners(t *testing.T) {
	quad := BuildQuad(400, 300)

	// Order: TL, TR, BL, TR, BR, BL.
	wantPos := [QuadVertexCount][2]float32{
		{-400, 300}, {400, 300}, {-400, -300},
		{400, 300}, {400, -300}, {-400, -300},
	}
	wantTex := [QuadVertexCount][2]float32{
		{0, 0}, {1, 0}, {0, 1},
		{1, 0}, {1, 1}, {0, 1},
	}
	for i, v := range quad {
		if v.Position != wantPos[i] {
			t.Errorf("vertex %d position = %v, want %v", i, v.Position, wantPos[i])
		}
		if v.TexCoord != wantTex[i] {
			t.Errorf("vertex %d tex_coord = %v, want %v", i, v.TexCoord, wantTex[i])
		}
	}
}

func TestBuildQuadTopLeftPairing(t *testing.T) {
	// The corner at (-halfW, +halfH) must carry texcoord (0,0): the top
	// texel row lands at the top of the drawable without any flip in
	// the shader.
	quad := BuildQuad(100, 50)
	tl := quad[0]
	if tl.Position != [2]float32{-100, 50} {
		t.Fatalf("first vertex position = %v, want (-100, 50)", tl.Position)
	}
	if tl.TexCoord != [2]float32{0, 0} {
		t.Errorf("top-left tex_coord = %v, want (0, 0)", tl.TexCoord)
	}
}

func TestFrameQuadStretch(t *testing.T) {
	vp := ViewportSize{W: 800, H: 600}
	quad := FrameQuad(vp, 320, 240, ScaleStretch)

	// Stretch fills the viewport regardless of frame aspect.
	if quad[0].Position != [2]float32{-400, 300} {
		t.Errorf("TL = %v, want (-400, 300)", quad[0].Position)
	}
	if quad[4].Position != [2]float32{400, -300} {
		t.Errorf("BR = %v, want (400, -300)", quad[4].Position)
	}
}

func TestFrameQuadAspectFit(t *testing.T) {
	vp := ViewportSize{W: 800, H: 600}

	// Wide frame in a 4:3 viewport: full width, letterboxed height.
	// 16:9 frame wants halfH = 400 / (16/9) = 225.
	quad := FrameQuad(vp, 1920, 1080, ScaleAspectFit)
	if quad[0].Position[0] != -400 {
		t.Errorf("fit wide: halfW = %f, want 400", -quad[0].Position[0])
	}
	if h := quad[0].Position[1]; h < 224.99 || h > 225.01 {
		t.Errorf("fit wide: halfH = %f, want ~225", h)
	}

	// Tall frame: full height, pillarboxed width.
	// 9:16 frame → halfW = 300 * (9/16) = 168.75.
	quad = FrameQuad(vp, 1080, 1920, ScaleAspectFit)
	if quad[0].Position[1] != 300 {
		t.Errorf("fit tall: halfH = %f, want 300", quad[0].Position[1])
	}
	if quad[0].Position[0] != -168.75 {
		t.Errorf("fit tall: halfW = %f, want 168.75", -quad[0].Position[0])
	}
}

func TestFrameQuadAspectFill(t *testing.T) {
	vp := ViewportSize{W: 800, H: 600}

	// Wide frame: full height, width overflows and is cropped.
	// 16:9 frame → halfW = 300 * (16/9) = 533.33.
	quad := FrameQuad(vp, 1920, 1080, ScaleAspectFill)
	if quad[0].Position[1] != 300 {
		t.Errorf("fill wide: halfH = %f, want 300", quad[0].Position[1])
	}
	halfW := -quad[0].Position[0]
	if halfW < 533.3 || halfW > 533.4 {
		t.Errorf("fill wide: halfW = %f, want ~533.33", halfW)
	}
}

func TestFrameQuadMatchingAspect(t *testing.T) {
	vp := ViewportSize{W: 640, H: 480}

	// Frame and viewport share 4:3: every mode fills exactly.
	for _, mode := range []ScaleMode{ScaleStretch, ScaleAspectFit, ScaleAspectFill} {
		quad := FrameQuad(vp, 320, 240, mode)
		if quad[0].Position != [2]float32{-320, 240} {
			t.Errorf("mode %d: TL = %v, want (-320, 240)", mode, quad[0].Position)
		}
	}
}

func TestFrameQuadZeroFrameFallsBack(t *testing.T) {
	vp := ViewportSize{W: 800, H: 600}

	// Degenerate frame dimensions: aspect math is skipped, quad fills
	// the viewport.
	quad := FrameQuad(vp, 0, 0, ScaleAspectFit)
	if quad[0].Position != [2]float32{-400, 300} {
		t.Errorf("TL = %v, want (-400, 300)", quad[0].Position)
	}
}

func TestEncodeQuad(t *testing.T) {
	quad := BuildQuad(1, 1)
	data := EncodeQuad(quad)
	if len(data) != QuadVertexCount*VertexStride {
		t.Errorf("encoded length = %d, want %d", len(data), QuadVertexCount*VertexStride)
	}
}
