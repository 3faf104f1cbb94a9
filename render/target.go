package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/device"
)

// targetFormat is the render target pixel format. RGBA8 keeps captured
// bytes in the same channel order the media encoders expect.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// Target is a reusable offscreen render texture. One Target is created per
// export and rendered into once per frame.
type Target struct {
	dev    *device.Device
	tex    hal.Texture
	view   hal.TextureView
	width  int
	height int
}

// NewTarget creates an offscreen render texture of the given size.
func NewTarget(dev *device.Device, width, height int) (*Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", glyphcast.ErrTextureCreation, width, height)
	}

	tex, err := dev.HAL().CreateTexture(&hal.TextureDescriptor{
		Label: "frame_target",
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", glyphcast.ErrTextureCreation, err)
	}

	view, err := dev.HAL().CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "frame_target_view",
		Format:        targetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		dev.HAL().DestroyTexture(tex)
		return nil, fmt.Errorf("%w: view: %v", glyphcast.ErrTextureCreation, err)
	}

	return &Target{dev: dev, tex: tex, view: view, width: width, height: height}, nil
}

// Width returns the target width in pixels.
func (t *Target) Width() int { return t.width }

// Height returns the target height in pixels.
func (t *Target) Height() int { return t.height }

// View returns the texture view used as a color attachment.
func (t *Target) View() hal.TextureView { return t.view }

// Destroy releases the texture. Safe to call multiple times.
func (t *Target) Destroy() {
	if t.view != nil {
		t.dev.HAL().DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.dev.HAL().DestroyTexture(t.tex)
		t.tex = nil
	}
}
