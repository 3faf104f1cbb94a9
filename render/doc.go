// Package render draws colored glyph grids on the GPU and captures the
// resulting frames into CPU-readable pixel buffers.
//
// GlyphRenderer renders a whole grid in one instanced draw: a unit quad is
// instanced per glyph, with position, size, atlas region, and color supplied
// per instance. The fragment shader evaluates the atlas's multi-channel
// signed distance field per pixel.
//
// Target is a reusable offscreen render texture. FramePool is a bounded pool
// of staging buffers; Capturer copies a Target into a pooled buffer and
// waits for the GPU before handing the pixels to the caller.
package render
