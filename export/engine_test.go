package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glyphcast/glyphcast"
)

// fakeSink records the calls the export loop makes and releases every
// frame it receives.
type fakeSink struct {
	mu         sync.Mutex
	log        []string
	pts        []time.Duration
	finished   bool
	aborted    bool
	waitErr    error
	writeErr   error
	writeErrAt int
	finishErr  error
}

func (s *fakeSink) Start(dst string) error { return nil }

func (s *fakeSink) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	s.log = append(s.log, "wait")
	s.mu.Unlock()
	if s.waitErr != nil {
		return s.waitErr
	}
	return ctx.Err()
}

func (s *fakeSink) WriteFrame(f Frame) error {
	s.mu.Lock()
	s.log = append(s.log, "write")
	n := len(s.pts)
	s.pts = append(s.pts, f.PTS)
	s.mu.Unlock()
	f.Release()
	if s.writeErr != nil && n >= s.writeErrAt {
		return s.writeErr
	}
	return nil
}

func (s *fakeSink) Finish() error {
	s.finished = true
	return s.finishErr
}

func (s *fakeSink) Abort() {
	s.aborted = true
}

func TestRunLoopFrameCountAndTimestamps(t *testing.T) {
	cfg := DefaultVideoConfig()
	cfg.FrameRate = 15

	sink := &fakeSink{}
	produced := 0
	produce := func(ctx context.Context, t float64) (Frame, error) {
		produced++
		wantT := float64(produced-1) / 15
		if diff := t - wantT; diff > 1e-6 || diff < -1e-6 {
			return Frame{}, fmt.Errorf("frame %d rendered at t=%v, want %v", produced-1, t, wantT)
		}
		return Frame{}, nil
	}

	err := runLoop(context.Background(), cfg.frameCount(2*time.Second), cfg.frameDuration(),
		produce, sink, nil, func(float64) {})
	if err != nil {
		t.Fatalf("runLoop() error = %v", err)
	}

	if produced != 30 {
		t.Errorf("produced %d frames, want 30", produced)
	}
	if len(sink.pts) != 30 {
		t.Fatalf("sink received %d frames, want 30", len(sink.pts))
	}
	frameDur := cfg.frameDuration()
	for i, pts := range sink.pts {
		if want := time.Duration(i) * frameDur; pts != want {
			t.Errorf("frame %d PTS = %v, want %v", i, pts, want)
		}
	}
	if !sink.finished {
		t.Error("sink was not finished")
	}
	if sink.aborted {
		t.Error("sink was aborted on success")
	}
}

func TestRunLoopProgressMonotonicEndsAtOne(t *testing.T) {
	sink := &fakeSink{}
	produce := func(ctx context.Context, t float64) (Frame, error) {
		return Frame{}, nil
	}

	var reported []float64
	progress := func(p float64) { reported = append(reported, p) }

	err := runLoop(context.Background(), 7, time.Second/30, produce, sink, progress, func(float64) {})
	if err != nil {
		t.Fatalf("runLoop() error = %v", err)
	}

	if len(reported) != 7 {
		t.Fatalf("got %d progress reports, want 7", len(reported))
	}
	for i := 1; i < len(reported); i++ {
		if reported[i] < reported[i-1] {
			t.Errorf("progress decreased: %v after %v", reported[i], reported[i-1])
		}
	}
	if last := reported[len(reported)-1]; last != 1.0 {
		t.Errorf("final progress = %v, want exactly 1.0", last)
	}
}

func TestRunLoopCancelAtFrameBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &fakeSink{}

	produced := 0
	produce := func(ctx context.Context, t float64) (Frame, error) {
		produced++
		if produced == 10 {
			// Cancel while frame 9 is in flight; it must still complete.
			cancel()
		}
		return Frame{}, nil
	}

	err := runLoop(ctx, 100, time.Second/30, produce, sink, nil, func(float64) {})
	if !errors.Is(err, glyphcast.ErrExportCancelled) {
		t.Fatalf("runLoop() error = %v, want ErrExportCancelled", err)
	}

	if produced != 10 {
		t.Errorf("produced %d frames, want exactly 10", produced)
	}
	if len(sink.pts) != 10 {
		t.Errorf("sink received %d frames, want 10", len(sink.pts))
	}
	if !sink.aborted {
		t.Error("sink was not aborted after cancellation")
	}
	if sink.finished {
		t.Error("sink was finished after cancellation")
	}
}

func TestRunLoopWriteErrorAborts(t *testing.T) {
	writeErr := &glyphcast.WriterError{Op: "append", Err: errors.New("disk full")}
	sink := &fakeSink{writeErr: writeErr, writeErrAt: 3}

	produce := func(ctx context.Context, t float64) (Frame, error) {
		return Frame{}, nil
	}

	err := runLoop(context.Background(), 20, time.Second/30, produce, sink, nil, func(float64) {})
	if !errors.Is(err, writeErr) {
		t.Fatalf("runLoop() error = %v, want %v", err, writeErr)
	}
	if !sink.aborted {
		t.Error("sink was not aborted after write error")
	}
	if len(sink.pts) != 4 {
		t.Errorf("sink received %d frames before failing, want 4", len(sink.pts))
	}
}

func TestRunLoopProduceErrorAborts(t *testing.T) {
	sink := &fakeSink{}
	renderErr := errors.New("shader blew up")

	calls := 0
	produce := func(ctx context.Context, t float64) (Frame, error) {
		calls++
		if calls == 3 {
			return Frame{}, renderErr
		}
		return Frame{}, nil
	}

	err := runLoop(context.Background(), 20, time.Second/30, produce, sink, nil, func(float64) {})
	if !errors.Is(err, renderErr) {
		t.Fatalf("runLoop() error = %v, want %v", err, renderErr)
	}
	if !sink.aborted {
		t.Error("sink was not aborted after produce error")
	}
}

func TestRunLoopWaitsBeforeEveryFrame(t *testing.T) {
	sink := &fakeSink{}
	produce := func(ctx context.Context, t float64) (Frame, error) {
		return Frame{}, nil
	}

	if err := runLoop(context.Background(), 4, time.Second/30, produce, sink, nil, func(float64) {}); err != nil {
		t.Fatalf("runLoop() error = %v", err)
	}

	want := []string{"wait", "write", "wait", "write", "wait", "write", "wait", "write"}
	if len(sink.log) != len(want) {
		t.Fatalf("call log has %d entries, want %d: %v", len(sink.log), len(want), sink.log)
	}
	for i, call := range want {
		if sink.log[i] != call {
			t.Errorf("call %d = %q, want %q", i, sink.log[i], call)
		}
	}
}

func TestPrepareDestinationMissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "no", "such", "dir", "out.avi")
	err := prepareDestination(dst)
	if !errors.Is(err, glyphcast.ErrDestinationUnavailable) {
		t.Errorf("prepareDestination() error = %v, want ErrDestinationUnavailable", err)
	}
}

func TestPrepareDestinationRemovesStaleFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.avi")
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := prepareDestination(dst); err != nil {
		t.Fatalf("prepareDestination() error = %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("stale destination file was not removed")
	}
}
