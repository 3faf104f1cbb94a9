package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/glyphcast/glyphcast/device"
)

// Capturer copies rendered Targets into pooled PixelBuffers and waits for
// the GPU so the pixels are ready when Capture returns. Frames are captured
// at full target resolution; scaling is an encoder concern.
type Capturer struct {
	dev *device.Device
}

// NewCapturer creates a capturer for the device.
func NewCapturer(dev *device.Device) *Capturer {
	return &Capturer{dev: dev}
}

// Capture copies the target's pixels into pb. It blocks until the GPU copy
// completes; on return pb.Bytes holds the frame, tightly packed.
func (c *Capturer) Capture(target *Target, pb *PixelBuffer) error {
	if target.width != pb.width || target.height != pb.height {
		return fmt.Errorf("render: capture %dx%d into %dx%d buffer",
			target.width, target.height, pb.width, pb.height)
	}
	if pb.gpu == nil {
		return fmt.Errorf("render: capture into CPU-only buffer")
	}
	dev := c.dev.HAL()
	w := uint32(target.width)
	h := uint32(target.height)

	encoder, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "capture_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame_capture"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	// After the render pass the texture is in attachment layout;
	// CopyTextureToBuffer needs a transfer-source layout. No-op on
	// backends without explicit layouts.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: target.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	encoder.CopyTextureToBuffer(target.tex, pb.gpu, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(pb.stride), RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: target.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Back to attachment layout so the next frame's render pass is valid.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: target.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer dev.FreeCommandBuffer(cmdBuf)

	if err := c.dev.SubmitAndWait([]hal.CommandBuffer{cmdBuf}, submitTimeout); err != nil {
		return err
	}

	if err := c.dev.Queue().ReadBuffer(pb.gpu, 0, pb.raw); err != nil {
		return fmt.Errorf("readback: %w", err)
	}

	// Drop the row padding.
	rowBytes := pb.width * 4
	for y := 0; y < pb.height; y++ {
		copy(pb.data[y*rowBytes:(y+1)*rowBytes], pb.raw[y*pb.stride:y*pb.stride+rowBytes])
	}
	return nil
}
