package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/render"
)

// RenderFunc draws the frame for time t (seconds since the start of the
// clip) into target. Called once per frame from the export goroutine.
type RenderFunc func(ctx context.Context, t float64, target *render.Target) error

// ProgressFunc receives export progress in [0, 1]. Values are monotonically
// non-decreasing and reach exactly 1.0 on success. Called from the export
// goroutine; keep it fast.
type ProgressFunc func(p float64)

// Frame is one captured frame handed to a sink. The sink owns the frame
// and must call Release exactly once, after which the pixel buffer returns
// to the pool and its contents become invalid.
type Frame struct {
	Pixels *render.PixelBuffer
	PTS    time.Duration

	release func(*render.PixelBuffer)
}

// Release returns the frame's buffer to its pool.
func (f Frame) Release() {
	if f.release != nil {
		f.release(f.Pixels)
	}
}

// Sink consumes captured frames and writes them to a media container.
// The engine calls WaitReady before producing each frame so a slow sink
// backpressures rendering instead of queueing unboundedly.
type Sink interface {
	// Start opens the destination. Failures wrap glyphcast.WriterError
	// with Op "start".
	Start(dst string) error

	// WaitReady blocks until the sink can accept another frame or the
	// context is cancelled.
	WaitReady(ctx context.Context) error

	// WriteFrame appends a frame at its presentation timestamp. The sink
	// takes ownership of the frame and must Release it.
	WriteFrame(f Frame) error

	// Finish completes the container. Failures wrap glyphcast.WriterError
	// with Op "finalize".
	Finish() error

	// Abort stops the sink and releases its resources. Called after any
	// loop error, including cancellation. Partially written output is
	// left on disk for the caller.
	Abort()
}

// produceFunc renders and captures the frame for time t.
type produceFunc func(ctx context.Context, t float64) (Frame, error)

// runLoop is the export loop shared by all exporters: for each frame it
// checks cancellation, waits for the sink, produces the frame, appends it
// at frameIndex * frameDur, and reports progress.
//
// On success the sink is finished and progress has reached exactly 1.0.
// On any failure the sink is aborted and the first error is returned;
// cancellation surfaces as ErrExportCancelled.
func runLoop(
	ctx context.Context,
	totalFrames int,
	frameDur time.Duration,
	produce produceFunc,
	sink Sink,
	progress ProgressFunc,
	report func(p float64),
) error {
	started := time.Now()
	for i := 0; i < totalFrames; i++ {
		// Cancellation is honored at frame boundaries only; a frame in
		// flight always completes.
		if err := ctx.Err(); err != nil {
			sink.Abort()
			return fmt.Errorf("%w: after %d frames", glyphcast.ErrExportCancelled, i)
		}

		if err := sink.WaitReady(ctx); err != nil {
			sink.Abort()
			if ctx.Err() != nil {
				return fmt.Errorf("%w: after %d frames", glyphcast.ErrExportCancelled, i)
			}
			return err
		}

		t := float64(i) * frameDur.Seconds()
		frame, err := produce(ctx, t)
		if err != nil {
			sink.Abort()
			if ctx.Err() != nil {
				return fmt.Errorf("%w: after %d frames", glyphcast.ErrExportCancelled, i)
			}
			return err
		}
		frame.PTS = time.Duration(i) * frameDur

		if err := sink.WriteFrame(frame); err != nil {
			sink.Abort()
			return err
		}

		p := float64(i+1) / float64(totalFrames)
		report(p)
		if progress != nil {
			progress(p)
		}
	}

	if err := sink.Finish(); err != nil {
		return err
	}
	glyphcast.Logger().Info("export finished",
		"frames", totalFrames, "elapsed", time.Since(started))
	return nil
}

// prepareDestination validates the destination path and removes a stale
// file of the same name. The parent directory must already exist.
func prepareDestination(dst string) error {
	dir := filepath.Dir(dst)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: directory %s", glyphcast.ErrDestinationUnavailable, dir)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove stale %s: %v", glyphcast.ErrDestinationUnavailable, dst, err)
	}
	return nil
}
