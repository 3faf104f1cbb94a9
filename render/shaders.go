package render

import _ "embed"

// Embedded glyph shader source.
//
//go:embed shaders/glyph.wgsl
var glyphShaderSource string
