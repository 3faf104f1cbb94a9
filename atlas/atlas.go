package atlas

import (
	"fmt"
	"image"
)

// GlyphInfo describes one glyph's location in the atlas texture and its
// layout metrics. All plane metrics are in em units.
type GlyphInfo struct {
	// TexCoords is the glyph's region in the atlas as [u0, v0, u1, v1],
	// normalized to [0, 1] with v increasing downward.
	TexCoords [4]float32

	// Advance is the horizontal advance in em units.
	Advance float32

	// PlaneBounds is the glyph quad relative to the baseline origin as
	// [left, bottom, right, top] in em units.
	PlaneBounds [4]float32
}

// Atlas is an immutable signed-distance-field glyph atlas: one texture
// image and a rune → GlyphInfo lookup table.
type Atlas struct {
	width, height int
	distanceRange float64
	glyphs        map[rune]GlyphInfo
	img           *image.NRGBA
}

// New builds an atlas from an image and a glyph table. The image holds the
// MSDF channels; distanceRange is the SDF range in atlas pixels.
func New(img *image.NRGBA, distanceRange float64, glyphs map[rune]GlyphInfo) (*Atlas, error) {
	if img == nil {
		return nil, fmt.Errorf("atlas: nil image")
	}
	if len(glyphs) == 0 {
		return nil, ErrEmptyAtlas
	}
	if distanceRange <= 0 {
		return nil, &ConfigError{Field: "DistanceRange", Reason: "must be positive"}
	}
	b := img.Bounds()
	return &Atlas{
		width:         b.Dx(),
		height:        b.Dy(),
		distanceRange: distanceRange,
		glyphs:        glyphs,
		img:           img,
	}, nil
}

// Glyph returns the info for r. The second result is false when the rune
// is not in the atlas; callers typically skip such glyphs.
func (a *Atlas) Glyph(r rune) (GlyphInfo, bool) {
	gi, ok := a.glyphs[r]
	return gi, ok
}

// Width returns the atlas texture width in pixels.
func (a *Atlas) Width() int { return a.width }

// Height returns the atlas texture height in pixels.
func (a *Atlas) Height() int { return a.height }

// DistanceRange returns the SDF distance range in atlas pixels.
func (a *Atlas) DistanceRange() float64 { return a.distanceRange }

// UnitRange returns the distance range converted to texture coordinate
// units, one component per axis. The shader multiplies this by the
// screen-space UV derivative to recover the SDF range in screen pixels.
func (a *Atlas) UnitRange() (x, y float32) {
	return float32(a.distanceRange / float64(a.width)),
		float32(a.distanceRange / float64(a.height))
}

// Len returns the number of glyphs in the atlas.
func (a *Atlas) Len() int { return len(a.glyphs) }

// Image returns the atlas texture. Callers must not modify it.
func (a *Atlas) Image() *image.NRGBA { return a.img }

// Runes returns all runes present in the atlas, in unspecified order.
func (a *Atlas) Runes() []rune {
	rs := make([]rune, 0, len(a.glyphs))
	for r := range a.glyphs {
		rs = append(rs, r)
	}
	return rs
}
