//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/liveview"
)

// frameFormat is the texel format of uploaded camera frames. Frame
// pixels arrive as tightly packed RGBA8, so the texture matches.
const frameFormat = gputypes.TextureFormatRGBA8Unorm

// frameTextures double-buffers the camera frame on the GPU. Uploads go
// to the back texture while the front texture may still be referenced
// by an in-flight frame's bind group; the buffers flip after each
// upload. Textures are reallocated when the incoming frame size
// changes.
type frameTextures struct {
	device hal.Device
	queue  hal.Queue

	textures [2]hal.Texture
	views    [2]hal.TextureView
	front    int

	width  int
	height int
}

func newFrameTextures(device hal.Device, queue hal.Queue) *frameTextures {
	return &frameTextures{
		device: device,
		queue:  queue,
	}
}

// Upload copies the frame's pixels into the back texture and flips the
// buffers, making the fresh texture the front one. If the frame size
// differs from the allocated textures, both are recreated first.
func (ft *frameTextures) Upload(frame *liveview.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if frame.Width != ft.width || frame.Height != ft.height {
		if err := ft.realloc(frame.Width, frame.Height); err != nil {
			return err
		}
	}

	back := 1 - ft.front
	w := uint32(frame.Width)   //nolint:gosec // validated positive
	h := uint32(frame.Height)  //nolint:gosec // validated positive
	ft.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  ft.textures[back],
			MipLevel: 0,
		},
		frame.Data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	ft.front = back
	return nil
}

// FrontView returns the view of the most recently uploaded texture, or
// nil when no frame has been uploaded yet.
func (ft *frameTextures) FrontView() hal.TextureView {
	return ft.views[ft.front]
}

// Size returns the dimensions of the allocated textures in texels.
func (ft *frameTextures) Size() (width, height int) {
	return ft.width, ft.height
}

func (ft *frameTextures) realloc(width, height int) error {
	ft.Destroy()

	w := uint32(width)   //nolint:gosec // validated positive
	h := uint32(height)  //nolint:gosec // validated positive
	for i := range ft.textures {
		tex, err := ft.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("liveview_frame_%d", i),
			Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        frameFormat,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			ft.Destroy()
			return fmt.Errorf("create frame texture %d: %w", i, err)
		}
		ft.textures[i] = tex

		view, err := ft.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         fmt.Sprintf("liveview_frame_%d_view", i),
			Format:        frameFormat,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			ft.Destroy()
			return fmt.Errorf("create frame texture view %d: %w", i, err)
		}
		ft.views[i] = view
	}

	ft.width = width
	ft.height = height
	slogger().Debug("frame textures allocated",
		"width", width, "height", height)
	return nil
}

// Destroy releases both textures and their views. Safe to call on a
// store with no allocated textures.
func (ft *frameTextures) Destroy() {
	for i := range ft.views {
		if ft.views[i] != nil {
			ft.device.DestroyTextureView(ft.views[i])
			ft.views[i] = nil
		}
	}
	for i := range ft.textures {
		if ft.textures[i] != nil {
			ft.device.DestroyTexture(ft.textures[i])
			ft.textures[i] = nil
		}
	}
	ft.width = 0
	ft.height = 0
	ft.front = 0
}
