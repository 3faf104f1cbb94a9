package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/HugoSmits86/nativewebp"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/device"
	"github.com/glyphcast/glyphcast/render"
)

// AnimationExporter writes a looping animated WebP of rendered frames.
//
// Frames are accumulated in memory and the container is encoded in one
// pass at the end, so the destination file only ever exists complete.
type AnimationExporter struct {
	dev  *device.Device
	cfg  AnimationConfig
	sess session
}

// NewAnimationExporter creates an animation exporter.
func NewAnimationExporter(dev *device.Device, cfg AnimationConfig) (*AnimationExporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AnimationExporter{dev: dev, cfg: cfg}, nil
}

// Export renders duration worth of frames via draw and writes an infinitely
// looping animated WebP to dst. It blocks until the export completes, fails,
// or ctx is cancelled at a frame boundary.
func (e *AnimationExporter) Export(ctx context.Context, dst string, duration time.Duration, draw RenderFunc, progress ProgressFunc) error {
	if err := e.sess.begin(); err != nil {
		return err
	}
	defer e.sess.end()

	if duration <= 0 {
		return fmt.Errorf("export: duration %v must be positive", duration)
	}
	if err := prepareDestination(dst); err != nil {
		return err
	}

	w, h := e.cfg.resolve()
	target, err := render.NewTarget(e.dev, w, h)
	if err != nil {
		return err
	}
	defer target.Destroy()

	pool, err := render.NewFramePool(e.dev, w, h, e.cfg.PoolDepth)
	if err != nil {
		return err
	}
	defer pool.Destroy()

	capturer := render.NewCapturer(e.dev)
	frameDur := e.cfg.frameDuration()
	sink := newWebPSink(frameDur)
	if err := sink.Start(dst); err != nil {
		return err
	}

	produce := func(ctx context.Context, t float64) (Frame, error) {
		pb, err := pool.Acquire(ctx)
		if err != nil {
			return Frame{}, err
		}
		if err := draw(ctx, t, target); err != nil {
			pool.Release(pb)
			return Frame{}, fmt.Errorf("render frame at %.3fs: %w", t, err)
		}
		if err := capturer.Capture(target, pb); err != nil {
			pool.Release(pb)
			return Frame{}, err
		}
		return Frame{Pixels: pb, release: pool.Release}, nil
	}

	return runLoop(ctx, e.cfg.frameCount(duration), frameDur, produce, sink, progress, e.sess.setProgress)
}

// Progress returns the progress of the running or last export in [0, 1].
func (e *AnimationExporter) Progress() float64 { return e.sess.Progress() }

// Exporting reports whether an export is currently running.
func (e *AnimationExporter) Exporting() bool { return e.sess.Exporting() }

// webpSink collects frames and encodes the whole animation in Finish.
// WebP animations carry per-frame durations in whole milliseconds, so the
// sink tracks a running remainder to keep the total length exact.
type webpSink struct {
	dst      string
	frameDur time.Duration

	frames    []image.Image
	durations []uint
	carry     time.Duration
}

func newWebPSink(frameDur time.Duration) *webpSink {
	return &webpSink{frameDur: frameDur}
}

func (s *webpSink) Start(dst string) error {
	s.dst = dst
	return nil
}

// WaitReady never blocks; encoding is deferred until Finish.
func (s *webpSink) WaitReady(ctx context.Context) error {
	return ctx.Err()
}

func (s *webpSink) WriteFrame(f Frame) error {
	src := f.Pixels.Image()
	clone := image.NewNRGBA(src.Bounds())
	copy(clone.Pix, src.Pix)
	f.Release()

	s.frames = append(s.frames, clone)
	s.durations = append(s.durations, s.nextDurationMS())
	return nil
}

// nextDurationMS returns the next frame duration in whole milliseconds,
// carrying the sub-millisecond remainder forward so the animation's total
// length matches frameCount * frameDur exactly.
func (s *webpSink) nextDurationMS() uint {
	s.carry += s.frameDur
	ms := s.carry / time.Millisecond
	s.carry -= ms * time.Millisecond
	return uint(ms)
}

func (s *webpSink) Finish() error {
	if len(s.frames) == 0 {
		return &glyphcast.WriterError{Op: "finalize", Err: fmt.Errorf("no frames")}
	}
	f, err := os.Create(s.dst)
	if err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	ani := &nativewebp.Animation{
		Images:    s.frames,
		Durations: s.durations,
		Disposals: make([]uint, len(s.frames)),
		LoopCount: 0, // loop forever
	}
	if err := nativewebp.EncodeAll(f, ani, nil); err != nil {
		f.Close()
		os.Remove(s.dst)
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(s.dst)
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	return nil
}

// Abort drops the accumulated frames. Nothing was written to disk yet.
func (s *webpSink) Abort() {
	s.frames = nil
	s.durations = nil
}
