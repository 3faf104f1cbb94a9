package render

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/device"
)

// MinPoolDepth is the smallest number of buffers a pool will hold. Three
// buffers let one frame be read back while another is encoded and a third
// is in flight.
const MinPoolDepth = 3

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies (WebGPU and DX12 mandate 256).
const copyPitchAlignment = 256

// PixelBuffer is one pooled capture buffer: a MapRead staging buffer on the
// GPU side and a tightly packed RGBA slice on the CPU side.
type PixelBuffer struct {
	gpu    hal.Buffer
	raw    []byte // row-aligned readback scratch
	data   []byte // tightly packed RGBA
	width  int
	height int
	stride int // aligned bytes per row in raw
}

// Bytes returns the tightly packed RGBA pixels from the last capture.
// The slice is reused; it is valid until the buffer is released.
func (b *PixelBuffer) Bytes() []byte { return b.data }

// Image wraps the pixel data as an image without copying. The image is
// valid until the buffer is released back to the pool.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.data,
		Stride: b.width * 4,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// NewPixelBuffer creates a CPU-side pixel buffer with no GPU staging
// backing. Frames built this way can be handed to export sinks directly,
// for example when the pixels come from a software renderer. A Capturer
// cannot write into it; captures need pool-allocated buffers.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		data:   make([]byte, width*height*4),
		width:  width,
		height: height,
		stride: width * 4,
	}
}

// Width returns the frame width in pixels.
func (b *PixelBuffer) Width() int { return b.width }

// Height returns the frame height in pixels.
func (b *PixelBuffer) Height() int { return b.height }

// FramePool is a fixed-size pool of PixelBuffers. Acquire blocks when all
// buffers are in flight, which backpressures the export loop against slow
// encoders instead of growing memory.
//
// FramePool is safe for concurrent use.
type FramePool struct {
	dev     *device.Device
	buffers []*PixelBuffer
	free    chan *PixelBuffer
}

// NewFramePool creates a pool of capture buffers for frames of the given
// size. Depth below MinPoolDepth is raised to MinPoolDepth.
func NewFramePool(dev *device.Device, width, height, depth int) (*FramePool, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame %dx%d", glyphcast.ErrBufferAllocation, width, height)
	}
	if depth < MinPoolDepth {
		depth = MinPoolDepth
	}

	stride := (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(stride) * uint64(height)

	p := &FramePool{dev: dev}
	for i := 0; i < depth; i++ {
		buf, err := dev.HAL().CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("frame_staging_%d", i),
			Size:  size,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("%w: staging buffer %d: %v", glyphcast.ErrBufferAllocation, i, err)
		}
		p.buffers = append(p.buffers, &PixelBuffer{
			gpu:    buf,
			raw:    make([]byte, size),
			data:   make([]byte, width*height*4),
			width:  width,
			height: height,
			stride: stride,
		})
	}
	p.free = newFreeList(p.buffers)
	return p, nil
}

// newFramePool builds a pool around pre-made buffers. Used by tests to
// exercise pool semantics without a GPU.
func newFramePool(buffers []*PixelBuffer) *FramePool {
	return &FramePool{buffers: buffers, free: newFreeList(buffers)}
}

func newFreeList(buffers []*PixelBuffer) chan *PixelBuffer {
	free := make(chan *PixelBuffer, len(buffers))
	for _, b := range buffers {
		free <- b
	}
	return free
}

// Acquire returns a free buffer, blocking until one is released or the
// context is cancelled.
func (p *FramePool) Acquire(ctx context.Context) (*PixelBuffer, error) {
	select {
	case b := <-p.free:
		return b, nil
	default:
	}
	select {
	case b := <-p.free:
		return b, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", glyphcast.ErrPoolExhausted, ctx.Err())
	}
}

// TryAcquire returns a free buffer or ErrPoolExhausted without blocking.
func (p *FramePool) TryAcquire() (*PixelBuffer, error) {
	select {
	case b := <-p.free:
		return b, nil
	default:
		return nil, glyphcast.ErrPoolExhausted
	}
}

// Release returns a buffer to the pool. Releasing a buffer that is not
// checked out corrupts the pool; callers release each acquired buffer
// exactly once.
func (p *FramePool) Release(b *PixelBuffer) {
	if b == nil {
		return
	}
	p.free <- b
}

// Depth returns the pool capacity.
func (p *FramePool) Depth() int { return len(p.buffers) }

// Destroy releases all GPU buffers. Outstanding PixelBuffers must be
// released before calling Destroy.
func (p *FramePool) Destroy() {
	for _, b := range p.buffers {
		if b.gpu != nil {
			p.dev.HAL().DestroyBuffer(b.gpu)
			b.gpu = nil
		}
	}
	p.buffers = nil
	p.free = nil
}
