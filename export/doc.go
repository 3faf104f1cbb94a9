// Package export drives frame-accurate media exports of rendered glyph
// grids. Three exporters share one loop: VideoExporter writes a continuous
// MJPEG/AVI video, AnimationExporter writes a looping animated WebP, and
// LiveExporter writes a paired still photo plus video carrying a shared
// identifier in both containers.
//
// The loop is strictly sequential: each frame is rendered, captured through
// a bounded buffer pool, and appended at frameIndex * frameDuration. Slow
// encoders backpressure the loop through Sink.WaitReady rather than growing
// queues. Cancellation is honored at frame boundaries; a cancelled export
// reports ErrExportCancelled. Partial output already written by then stays
// on disk and is the caller's to remove.
//
// Each exporter owns a session allowing one export at a time; concurrent
// Export calls fail fast with ErrAlreadyExporting.
package export
