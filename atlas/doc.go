// Package atlas provides the signed-distance-field glyph atlas used by the
// renderer: a single texture image plus a per-rune lookup table of texture
// regions and layout metrics.
//
// An atlas is immutable once constructed. Two constructors are provided:
// LoadPackaged reads a pre-generated atlas (msdf-atlas-gen JSON manifest plus
// PNG image), and Generate builds a pseudo-SDF placeholder atlas from the
// bundled Go Regular font so the renderer works without external assets.
package atlas
