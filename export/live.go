package export

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/device"
	"github.com/glyphcast/glyphcast/render"
)

// liveVideoPhase is the share of reported progress spent on the video
// component; the remainder covers the still frame and identifier embedding.
const liveVideoPhase = 0.70

// LiveExporter writes a paired asset: a still JPEG photo plus an MJPEG/AVI
// video, both carrying the same generated identifier. The identifier is
// embedded as a JPEG comment segment in the still and as a custom RIFF
// chunk in the video; StillPairID and VideoPairID recover it, so either
// file can be matched to its partner.
type LiveExporter struct {
	dev  *device.Device
	cfg  LiveConfig
	sess session
}

// NewLiveExporter creates a live pair exporter.
func NewLiveExporter(dev *device.Device, cfg LiveConfig) (*LiveExporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LiveExporter{dev: dev, cfg: cfg}, nil
}

// Export writes the paired still and video and returns the identifier
// shared by both files. A failed or cancelled export may leave partial
// output behind; treat those files as garbage and remove them.
func (e *LiveExporter) Export(ctx context.Context, stillDst, videoDst string, duration time.Duration, draw RenderFunc, progress ProgressFunc) (string, error) {
	if err := e.sess.begin(); err != nil {
		return "", err
	}
	defer e.sess.end()

	if duration <= 0 {
		return "", fmt.Errorf("export: duration %v must be positive", duration)
	}
	if err := prepareDestination(stillDst); err != nil {
		return "", err
	}

	pairID := uuid.NewString()

	report := func(p float64) {
		q := p * liveVideoPhase
		e.sess.setProgress(q)
		if progress != nil {
			progress(q)
		}
	}
	if err := runVideoExport(ctx, e.dev, e.cfg.Video, videoDst, duration, draw, report, nil); err != nil {
		return "", err
	}

	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: before still frame", glyphcast.ErrExportCancelled)
	}

	still, err := e.renderStill(ctx, duration, draw)
	if err != nil {
		return "", err
	}
	e.advance(0.90, progress)

	tagged, err := insertJPEGComment(still, pairID)
	if err != nil {
		return "", &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	if err := os.WriteFile(stillDst, tagged, 0o644); err != nil {
		return "", &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	if err := appendPairChunk(videoDst, pairID); err != nil {
		return "", err
	}
	e.advance(1.0, progress)

	glyphcast.Logger().Info("live pair exported",
		"pair_id", pairID, "still", stillDst, "video", videoDst)
	return pairID, nil
}

// Progress returns the progress of the running or last export in [0, 1].
func (e *LiveExporter) Progress() float64 { return e.sess.Progress() }

// Exporting reports whether an export is currently running.
func (e *LiveExporter) Exporting() bool { return e.sess.Exporting() }

// renderStill renders and JPEG-encodes the single still frame at the
// configured timestamp, clamped into the clip.
func (e *LiveExporter) renderStill(ctx context.Context, duration time.Duration, draw RenderFunc) ([]byte, error) {
	t := e.cfg.StillTime
	if t == 0 {
		t = duration / 2
	}
	if t > duration {
		t = duration
	}

	w, h := e.cfg.Video.resolve()
	target, err := render.NewTarget(e.dev, w, h)
	if err != nil {
		return nil, err
	}
	defer target.Destroy()

	pool, err := render.NewFramePool(e.dev, w, h, 1)
	if err != nil {
		return nil, err
	}
	defer pool.Destroy()

	pb, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Release(pb)

	if err := draw(ctx, t.Seconds(), target); err != nil {
		return nil, fmt.Errorf("render still at %v: %w", t, err)
	}
	if err := render.NewCapturer(e.dev).Capture(target, pb); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, pb.Image(), &jpeg.Options{Quality: e.cfg.StillQuality}); err != nil {
		return nil, &glyphcast.WriterError{Op: "finalize", Err: err}
	}
	return buf.Bytes(), nil
}

func (e *LiveExporter) advance(p float64, progress ProgressFunc) {
	e.sess.setProgress(p)
	if progress != nil {
		progress(p)
	}
}
