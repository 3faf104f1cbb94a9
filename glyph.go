package glyphcast

import (
	"fmt"
	"time"
)

// ColoredGlyph is a single character cell: the glyph to draw, the color
// sampled for its cell, and the perceived brightness that selected it.
type ColoredGlyph struct {
	// Char is the character drawn in this cell.
	Char rune

	// Color is the cell color, non-premultiplied.
	Color RGBA

	// Brightness is the perceived luminance of the source cell, 0-255.
	// Carried along for downstream consumers; rendering does not use it.
	Brightness uint8
}

// GlyphGrid is a complete frame of colored glyphs in row-major order.
// A grid is immutable once built; animation produces a new grid per frame.
type GlyphGrid struct {
	// Width and Height are the grid dimensions in cells.
	Width, Height int

	// Glyphs holds Width*Height cells, row-major (index = y*Width + x).
	Glyphs []ColoredGlyph

	// CreatedAt records when the grid was produced.
	CreatedAt time.Time

	// SourceWidth and SourceHeight are the pixel dimensions of the source
	// the grid was derived from, when known. Zero when synthetic.
	SourceWidth, SourceHeight int
}

// NewGlyphGrid builds a grid and checks the cell-count invariant.
// It returns an error if dimensions are non-positive or if
// len(glyphs) != width*height.
func NewGlyphGrid(width, height int, glyphs []ColoredGlyph) (*GlyphGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("glyphcast: grid dimensions %dx%d: %w", width, height, ErrInvalidGrid)
	}
	if len(glyphs) != width*height {
		return nil, fmt.Errorf("glyphcast: grid %dx%d needs %d glyphs, got %d: %w",
			width, height, width*height, len(glyphs), ErrInvalidGrid)
	}
	return &GlyphGrid{
		Width:     width,
		Height:    height,
		Glyphs:    glyphs,
		CreatedAt: time.Now(),
	}, nil
}

// At returns the glyph at cell (x, y). It panics if the coordinates are
// out of range, matching slice indexing semantics.
func (g *GlyphGrid) At(x, y int) ColoredGlyph {
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		panic(fmt.Sprintf("glyphcast: grid index (%d,%d) out of range %dx%d", x, y, g.Width, g.Height))
	}
	return g.Glyphs[y*g.Width+x]
}

// Cells returns the total number of cells in the grid.
func (g *GlyphGrid) Cells() int { return g.Width * g.Height }
