package export

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/icza/mjpeg"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/device"
	"github.com/glyphcast/glyphcast/render"
)

// VideoExporter writes a continuous MJPEG/AVI video of rendered frames.
//
// VideoExporter is safe for concurrent use; concurrent Export calls beyond
// the first fail with ErrAlreadyExporting.
type VideoExporter struct {
	dev  *device.Device
	cfg  VideoConfig
	sess session
}

// NewVideoExporter creates a video exporter.
func NewVideoExporter(dev *device.Device, cfg VideoConfig) (*VideoExporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &VideoExporter{dev: dev, cfg: cfg}, nil
}

// Export renders duration worth of frames via draw and writes them to dst.
// It blocks until the export completes, fails, or ctx is cancelled at a
// frame boundary. A failed or cancelled export may leave a partially
// written dst behind; treat it as garbage and remove it.
func (e *VideoExporter) Export(ctx context.Context, dst string, duration time.Duration, draw RenderFunc, progress ProgressFunc) error {
	if err := e.sess.begin(); err != nil {
		return err
	}
	defer e.sess.end()

	return runVideoExport(ctx, e.dev, e.cfg, dst, duration, draw, e.sess.setProgress, progress)
}

// Progress returns the progress of the running or last export in [0, 1].
func (e *VideoExporter) Progress() float64 { return e.sess.Progress() }

// Exporting reports whether an export is currently running.
func (e *VideoExporter) Exporting() bool { return e.sess.Exporting() }

// runVideoExport is the video pipeline shared with LiveExporter: offscreen
// target, bounded capture pool, MJPEG sink with an async encode worker.
func runVideoExport(
	ctx context.Context,
	dev *device.Device,
	cfg VideoConfig,
	dst string,
	duration time.Duration,
	draw RenderFunc,
	report func(float64),
	progress ProgressFunc,
) error {
	if duration <= 0 {
		return fmt.Errorf("export: duration %v must be positive", duration)
	}
	if err := prepareDestination(dst); err != nil {
		return err
	}

	w, h := cfg.resolve()
	target, err := render.NewTarget(dev, w, h)
	if err != nil {
		return err
	}
	defer target.Destroy()

	pool, err := render.NewFramePool(dev, w, h, cfg.PoolDepth)
	if err != nil {
		return err
	}
	defer pool.Destroy()

	capturer := render.NewCapturer(dev)
	sink := newMJPEGSink(w, h, cfg.FrameRate, cfg.Quality, pool.Depth()-1)
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

	return runLoop(ctx, cfg.frameCount(duration), cfg.frameDuration(), produce, sink, progress, report)
}

// mjpegSink encodes frames to JPEG on a single worker goroutine and
// appends them to an AVI container. A token channel bounds the number of
// frames in flight; WaitReady blocks when the encoder falls behind.
// One worker keeps append order identical to submit order.
type mjpegSink struct {
	width, height int
	fps           float64
	quality       int

	// newWriter opens the AVI container; swapped by tests to inject
	// writer failures.
	newWriter func(dst string) (mjpeg.AviWriter, error)

	aw     mjpeg.AviWriter
	jobs   chan Frame
	tokens chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mu  sync.Mutex
	err error
}

func newMJPEGSink(width, height int, fps float64, quality, queueDepth int) *mjpegSink {
	if queueDepth < 1 {
		queueDepth = 1
	}
	s := &mjpegSink{
		width:   width,
		height:  height,
		fps:     fps,
		quality: quality,
		jobs:    make(chan Frame, queueDepth),
		tokens:  make(chan struct{}, queueDepth),
	}
	s.newWriter = func(dst string) (mjpeg.AviWriter, error) {
		return mjpeg.New(dst, int32(width), int32(height), int32(fps+0.5))
	}
	for i := 0; i < queueDepth; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

func (s *mjpegSink) Start(dst string) error {
	aw, err := s.newWriter(dst)
	if err != nil {
		return &glyphcast.WriterError{Op: "start", Err: err}
	}
	s.aw = aw

	s.wg.Add(1)
	go s.encodeWorker()
	return nil
}

func (s *mjpegSink) encodeWorker() {
	defer s.wg.Done()
	var buf bytes.Buffer
	for f := range s.jobs {
		if s.sinkErr() == nil {
			buf.Reset()
			if err := jpeg.Encode(&buf, f.Pixels.Image(), &jpeg.Options{Quality: s.quality}); err != nil {
				s.setErr(&glyphcast.WriterError{Op: "append", Err: err})
			} else if err := s.aw.AddFrame(buf.Bytes()); err != nil {
				s.setErr(&glyphcast.WriterError{Op: "append", Err: err})
			}
		}
		f.Release()
		s.tokens <- struct{}{}
	}
}

func (s *mjpegSink) WaitReady(ctx context.Context) error {
	if err := s.sinkErr(); err != nil {
		return err
	}
	select {
	case <-s.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *mjpegSink) WriteFrame(f Frame) error {
	if err := s.sinkErr(); err != nil {
		f.Release()
		return err
	}
	// WaitReady took a token, so the queue has room.
	s.jobs <- f
	return nil
}

func (s *mjpegSink) Finish() error {
	s.once.Do(func() { close(s.jobs) })
	s.wg.Wait()
	if err := s.sinkErr(); err != nil {
		s.aw.Close()
		return err
	}
	if err := s.aw.Close(); err != nil {
		return &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	return nil
}

// Abort drains the encode queue and closes the container. The partially
// written file stays on disk; callers own its cleanup.
func (s *mjpegSink) Abort() {
	s.once.Do(func() { close(s.jobs) })
	s.wg.Wait()
	if s.aw != nil {
		s.aw.Close()
	}
}

func (s *mjpegSink) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *mjpegSink) sinkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
