package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glyphcast/glyphcast"
)

func testPool(depth int) *FramePool {
	buffers := make([]*PixelBuffer, depth)
	for i := range buffers {
		buffers[i] = &PixelBuffer{width: 4, height: 4, data: make([]byte, 4*4*4)}
	}
	return newFramePool(buffers)
}

func TestFramePoolBounded(t *testing.T) {
	p := testPool(3)

	var held []*PixelBuffer
	for i := 0; i < 3; i++ {
		b, err := p.TryAcquire()
		if err != nil {
			t.Fatalf("TryAcquire %d: %v", i, err)
		}
		held = append(held, b)
	}

	if _, err := p.TryAcquire(); !errors.Is(err, glyphcast.ErrPoolExhausted) {
		t.Errorf("TryAcquire on empty pool = %v, want ErrPoolExhausted", err)
	}

	p.Release(held[0])
	if _, err := p.TryAcquire(); err != nil {
		t.Errorf("TryAcquire after release: %v", err)
	}
}

func TestFramePoolAcquireBlocksUntilRelease(t *testing.T) {
	p := testPool(3)

	var held []*PixelBuffer
	for i := 0; i < 3; i++ {
		b, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		held = append(held, b)
	}

	done := make(chan *PixelBuffer)
	go func() {
		b, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("blocked Acquire: %v", err)
		}
		done <- b
	}()

	select {
	case <-done:
		t.Fatal("Acquire returned with no free buffers")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release(held[2])
	select {
	case b := <-done:
		if b != held[2] {
			t.Error("Acquire returned a different buffer than released")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not resume after Release")
	}
}

func TestFramePoolAcquireCancelled(t *testing.T) {
	p := testPool(3)
	for i := 0; i < 3; i++ {
		if _, err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Acquire(ctx)
	if !errors.Is(err, glyphcast.ErrPoolExhausted) {
		t.Errorf("err = %v, want ErrPoolExhausted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want wrapped context.Canceled", err)
	}
}

func TestFramePoolDepthClamp(t *testing.T) {
	// newFramePool is the GPU-free path; depth clamping happens in
	// NewFramePool, so just document the minimum here.
	if MinPoolDepth != 3 {
		t.Errorf("MinPoolDepth = %d, want 3", MinPoolDepth)
	}
	p := testPool(5)
	if got, want := p.Depth(), 5; got != want {
		t.Errorf("Depth() = %d, want %d", got, want)
	}
}

func TestNewPixelBuffer(t *testing.T) {
	b := NewPixelBuffer(3, 2)
	if b.Width() != 3 || b.Height() != 2 {
		t.Errorf("size = %dx%d, want 3x2", b.Width(), b.Height())
	}
	if got, want := len(b.Bytes()), 3*2*4; got != want {
		t.Errorf("len(Bytes()) = %d, want %d", got, want)
	}

	// Pixels written through Bytes are visible through Image.
	b.Bytes()[0] = 0xCD
	if b.Image().Pix[0] != 0xCD {
		t.Error("Bytes() and Image() do not share storage")
	}
}

func TestPixelBufferImage(t *testing.T) {
	b := &PixelBuffer{width: 2, height: 2, data: make([]byte, 2*2*4)}
	b.data[0] = 0xAB
	img := b.Image()
	if got, want := img.Rect.Dx(), 2; got != want {
		t.Errorf("image width = %d, want %d", got, want)
	}
	if img.Pix[0] != 0xAB {
		t.Error("Image() does not share pixel storage")
	}
}
