package render

import (
	"encoding/binary"
	"math"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/atlas"
)

// DefaultMaxGlyphs is the default instance buffer capacity. Grids with more
// cells than this are truncated in row-major order.
const DefaultMaxGlyphs = 100_000

// glyphInstanceStride is the byte stride per instance.
// Layout per instance:
//
//	pos     (vec2<f32>) = 8 bytes  (location 1)
//	size    (vec2<f32>) = 8 bytes  (location 2)
//	uv_rect (vec4<f32>) = 16 bytes (location 3)
//	color   (vec4<f32>) = 16 bytes (location 4)
//
// Total = 48 bytes per instance.
const glyphInstanceStride = 48

// GlyphInstance is one glyph quad in GPU instance layout.
// Matches VertexInput instance attributes in glyph.wgsl.
type GlyphInstance struct {
	// X, Y is the quad top-left in pixels.
	X, Y float32

	// W, H is the quad size in pixels.
	W, H float32

	// U0, V0, U1, V1 is the atlas region.
	U0, V0, U1, V1 float32

	// R, G, B, A is the premultiplied color.
	R, G, B, A float32
}

// Layout maps grid cells to pixel positions.
type Layout struct {
	// CellWidth and CellHeight are the cell dimensions in pixels.
	CellWidth, CellHeight float32

	// OriginX and OriginY offset the whole grid in pixels.
	OriginX, OriginY float32

	// FontSize is the em size in pixels for glyph quads.
	// Zero means CellHeight.
	FontSize float32

	// Baseline is the baseline position as a fraction of cell height
	// measured from the cell top. Zero means 0.8.
	Baseline float32
}

// BuildInstances fills dst with glyph instances for the grid, row-major.
// Glyphs absent from the atlas and glyphs without an atlas region
// (whitespace) are skipped. When dst runs out of room the remaining cells
// are dropped silently and the count so far is returned.
func BuildInstances(dst []GlyphInstance, grid *glyphcast.GlyphGrid, at *atlas.Atlas, l Layout) int {
	fs := l.FontSize
	if fs == 0 {
		fs = l.CellHeight
	}
	baseline := l.Baseline
	if baseline == 0 {
		baseline = 0.8
	}

	n := 0
	for y := 0; y < grid.Height; y++ {
		rowBaseline := l.OriginY + (float32(y)+baseline)*l.CellHeight
		for x := 0; x < grid.Width; x++ {
			g := grid.Glyphs[y*grid.Width+x]
			gi, ok := at.Glyph(g.Char)
			if !ok {
				continue
			}
			if gi.TexCoords[2] <= gi.TexCoords[0] || gi.TexCoords[3] <= gi.TexCoords[1] {
				continue
			}
			if n == len(dst) {
				return n
			}

			pb := gi.PlaneBounds
			c := g.Color.Premultiply()
			dst[n] = GlyphInstance{
				X:  l.OriginX + float32(x)*l.CellWidth + pb[0]*fs,
				Y:  rowBaseline - pb[3]*fs,
				W:  (pb[2] - pb[0]) * fs,
				H:  (pb[3] - pb[1]) * fs,
				U0: gi.TexCoords[0], V0: gi.TexCoords[1],
				U1: gi.TexCoords[2], V1: gi.TexCoords[3],
				R: float32(c.R), G: float32(c.G), B: float32(c.B), A: float32(c.A),
			}
			n++
		}
	}
	return n
}

// packInstances serializes instances into raw bytes for GPU upload.
func packInstances(dst []byte, instances []GlyphInstance) {
	off := 0
	for i := range instances {
		in := &instances[i]
		for _, v := range [12]float32{
			in.X, in.Y, in.W, in.H,
			in.U0, in.V0, in.U1, in.V1,
			in.R, in.G, in.B, in.A,
		} {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
			off += 4
		}
	}
}
