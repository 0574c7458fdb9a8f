package liveview

import (
	"errors"
	"fmt"
	"image"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Frame errors.
var (
	// ErrEmptyFrame is returned when a frame has no pixel data or
	// non-positive dimensions.
	ErrEmptyFrame = errors.New("liveview: empty frame")

	// ErrFrameSize is returned when a frame's pixel data does not match
	// its declared dimensions.
	ErrFrameSize = errors.New("liveview: frame data size mismatch")
)

// Frame is one decoded camera frame ready for texture upload.
//
// Immutability contract: Data must not be modified after the frame is
// handed to Publish. The mailbox and renderer share the slice by
// reference; the producer allocates a fresh frame per capture.
type Frame struct {
	// Data holds tightly packed RGBA8 pixels, row-major, top row first.
	// Length must be Width*Height*4.
	Data []byte

	// Width and Height are the frame dimensions in pixels. Frames may
	// change dimensions mid-stream (cameras renegotiate formats); the
	// renderer reallocates its textures when they do.
	Width, Height int

	// Timestamp is the capture time at the source, not processing time.
	Timestamp time.Time

	// Seq is a monotonically increasing sequence number assigned by the
	// producer. Used for drop accounting.
	Seq uint64
}

// Validate checks the frame's dimensions against its pixel data.
func (f *Frame) Validate() error {
	if f == nil || len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0 {
		return ErrEmptyFrame
	}
	if want := f.Width * f.Height * 4; len(f.Data) != want {
		return fmt.Errorf("%w: %dx%d wants %d bytes, have %d",
			ErrFrameSize, f.Width, f.Height, want, len(f.Data))
	}
	return nil
}

// FrameFromImage converts src into an RGBA frame. Camera decode paths
// typically produce image.YCbCr; the conversion goes through
// x/image/draw so any image.Image works.
//
// If maxEdge > 0 and either dimension exceeds it, the frame is scaled
// down (aspect preserved, bilinear) so the longer edge equals maxEdge.
// This bounds texture memory for high-resolution sources.
func FrameFromImage(src image.Image, maxEdge int) (*Frame, error) {
	if src == nil {
		return nil, ErrEmptyFrame
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyFrame
	}

	dstW, dstH := w, h
	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		if w >= h {
			dstW = maxEdge
			dstH = h * maxEdge / w
		} else {
			dstH = maxEdge
			dstW = w * maxEdge / h
		}
		if dstW < 1 {
			dstW = 1
		}
		if dstH < 1 {
			dstH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	if dstW == w && dstH == h {
		xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	}

	// image.RGBA strides may exceed 4*w; repack tightly for WriteTexture.
	data := dst.Pix
	if dst.Stride != dstW*4 {
		data = make([]byte, dstW*dstH*4)
		for y := 0; y < dstH; y++ {
			copy(data[y*dstW*4:(y+1)*dstW*4], dst.Pix[y*dst.Stride:y*dst.Stride+dstW*4])
		}
	}

	return &Frame{
		Data:      data,
		Width:     dstW,
		Height:    dstH,
		Timestamp: time.Now(),
	}, nil
}
