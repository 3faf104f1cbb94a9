// Package glyphcast renders grids of colored glyphs on the GPU and exports
// time-varying sequences of those frames as media files.
//
// The module is organized in layers:
//
//   - glyphcast (this package): shared value types (RGBA, ColoredGlyph,
//     GlyphGrid), the error taxonomy, and the library logger.
//   - atlas: the immutable signed-distance-field glyph atlas and its loaders.
//   - device: the process-scoped GPU device context.
//   - render: the instanced MSDF glyph renderer and the bounded
//     frame-capture pool.
//   - export: frame-driven export engines for continuous video (MJPEG/AVI),
//     looping animated WebP, and paired still+video assets.
//
// A typical export:
//
//	dev, err := device.Shared()
//	// load or generate an atlas, construct a render.GlyphRenderer
//	exp, err := export.NewVideoExporter(dev, cfg)
//	err = exp.Export(ctx, "out.avi", 3*time.Second, renderFrame, onProgress)
//
// Rendering uses multi-channel signed distance fields, so glyph edges stay
// sharp at any output resolution without re-rasterizing text.
package glyphcast
