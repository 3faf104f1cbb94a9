package export

import (
	"testing"
	"time"
)

func TestWebPSinkDurationCarry(t *testing.T) {
	// 15 fps is 66.67ms per frame, which whole-millisecond durations
	// cannot represent exactly. The carry alternates 66/67 so the total
	// stays within one millisecond of the true length.
	cfg := DefaultAnimationConfig()
	s := newWebPSink(cfg.frameDuration())

	want := []uint{66, 67, 66, 67}
	for i, w := range want {
		if got := s.nextDurationMS(); got != w {
			t.Errorf("frame %d duration = %dms, want %dms", i, got, w)
		}
	}

	s = newWebPSink(cfg.frameDuration())
	var total uint
	for i := 0; i < 15; i++ {
		total += s.nextDurationMS()
	}
	if total != 999 {
		t.Errorf("15 frames at 15fps total %dms, want 999ms", total)
	}
}

func TestWebPSinkExactDurations(t *testing.T) {
	s := newWebPSink(40 * time.Millisecond) // 25 fps divides evenly
	for i := 0; i < 5; i++ {
		if got := s.nextDurationMS(); got != 40 {
			t.Errorf("frame %d duration = %dms, want 40ms", i, got)
		}
	}
}

func TestWebPSinkFinishWithoutFrames(t *testing.T) {
	s := newWebPSink(time.Second / 15)
	if err := s.Start(t.TempDir() + "/empty.webp"); err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(); err == nil {
		t.Error("Finish() with no frames succeeded")
	}
}
