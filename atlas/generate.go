package atlas

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// GenerateConfig holds parameters for the placeholder atlas generator.
type GenerateConfig struct {
	// GlyphSize is the em size in pixels at which glyphs are rasterized.
	// Default: 48
	GlyphSize int

	// Padding is the SDF padding around each glyph cell in pixels.
	// Must leave room for the full distance range.
	// Default: 6
	Padding int

	// Range is the distance range in pixels.
	// Default: 6.0
	Range float64

	// Charset is the set of runes to include.
	// Default: printable ASCII (space through tilde).
	Charset []rune
}

// DefaultGenerateConfig returns the default generator configuration.
func DefaultGenerateConfig() GenerateConfig {
	charset := make([]rune, 0, 95)
	for r := rune(' '); r <= '~'; r++ {
		charset = append(charset, r)
	}
	return GenerateConfig{
		GlyphSize: 48,
		Padding:   6,
		Range:     6.0,
		Charset:   charset,
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *GenerateConfig) Validate() error {
	if c.GlyphSize < 8 {
		return &ConfigError{Field: "GlyphSize", Reason: "must be at least 8"}
	}
	if c.GlyphSize > 256 {
		return &ConfigError{Field: "GlyphSize", Reason: "must be at most 256"}
	}
	if c.Range <= 0 {
		return &ConfigError{Field: "Range", Reason: "must be positive"}
	}
	if float64(c.Padding) < c.Range {
		return &ConfigError{Field: "Padding", Reason: "must cover Range"}
	}
	if len(c.Charset) == 0 {
		return &ConfigError{Field: "Charset", Reason: "must not be empty"}
	}
	return nil
}

// Generate builds a pseudo-SDF atlas from the bundled Go Regular font.
// The same distance value is written to all three color channels, so the
// shader's median reduces to a plain SDF. Quality is below a true MSDF
// (soft corners at large magnification) but needs no external tooling.
func Generate(cfg GenerateConfig) (*Atlas, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("atlas: parse bundled font: %w", err)
	}
	emPx := float64(cfg.GlyphSize)
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    emPx,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: create face: %w", err)
	}
	defer face.Close()

	// Fixed grid of cells. An em-sized glyph plus padding always fits:
	// the cell adds a quarter em of slack for wide glyphs.
	cell := cfg.GlyphSize + cfg.GlyphSize/4 + 2*cfg.Padding
	cols := int(math.Ceil(math.Sqrt(float64(len(cfg.Charset)))))
	rows := (len(cfg.Charset) + cols - 1) / cols
	atlasW := cols * cell
	atlasH := rows * cell

	img := image.NewNRGBA(image.Rect(0, 0, atlasW, atlasH))
	cov := image.NewAlpha(image.Rect(0, 0, cell, cell))
	glyphs := make(map[rune]GlyphInfo, len(cfg.Charset))

	w32 := float32(atlasW)
	h32 := float32(atlasH)
	pad := cfg.Padding

	for i, r := range cfg.Charset {
		gb, adv, ok := face.GlyphBounds(r)
		if !ok {
			continue
		}

		cellX := (i % cols) * cell
		cellY := (i / cols) * cell

		// Rasterize the glyph coverage into the scratch cell, offset so
		// its bounding box starts at (pad, pad).
		draw.Draw(cov, cov.Bounds(), image.Transparent, image.Point{}, draw.Src)
		dot := fixed.Point26_6{
			X: fixed.I(pad) - gb.Min.X,
			Y: fixed.I(pad) - gb.Min.Y,
		}
		dr, mask, maskp, _, ok := face.Glyph(dot, r)
		if ok {
			draw.DrawMask(cov, dr.Intersect(cov.Bounds()), image.White, image.Point{}, mask, maskp, draw.Over)
		}

		gw := (gb.Max.X - gb.Min.X).Ceil()
		gh := (gb.Max.Y - gb.Min.Y).Ceil()
		// Region including SDF padding on all sides.
		rw := gw + 2*pad
		rh := gh + 2*pad
		if rw > cell {
			rw = cell
		}
		if rh > cell {
			rh = cell
		}

		writeSDF(img, cov, cellX, cellY, rw, rh, cfg.Range)

		padEm := float32(float64(pad) / emPx)
		glyphs[r] = GlyphInfo{
			TexCoords: [4]float32{
				float32(cellX) / w32,
				float32(cellY) / h32,
				float32(cellX+rw) / w32,
				float32(cellY+rh) / h32,
			},
			Advance: float32(fixedToEm(adv, emPx)),
			PlaneBounds: [4]float32{
				float32(fixedToEm(gb.Min.X, emPx)) - padEm,  // left
				float32(-fixedToEm(gb.Max.Y, emPx)) - padEm, // bottom (font space is y-down)
				float32(fixedToEm(gb.Max.X, emPx)) + padEm,  // right
				float32(-fixedToEm(gb.Min.Y, emPx)) + padEm, // top
			},
		}
	}

	return New(img, cfg.Range, glyphs)
}

func fixedToEm(v fixed.Int26_6, emPx float64) float64 {
	return float64(v) / 64 / emPx
}

// writeSDF converts the coverage mask in cov's top-left rw x rh region into
// a signed distance field written at (dstX, dstY). Distance is measured by
// brute-force search in a window of sdfRange pixels, which is fast enough
// for the small cells used here.
func writeSDF(dst *image.NRGBA, cov *image.Alpha, dstX, dstY, rw, rh int, sdfRange float64) {
	win := int(math.Ceil(sdfRange))
	for y := 0; y < rh; y++ {
		for x := 0; x < rw; x++ {
			inside := covAt(cov, x, y, rw, rh)
			best := sdfRange
			for dy := -win; dy <= win; dy++ {
				for dx := -win; dx <= win; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if covAt(cov, x+dx, y+dy, rw, rh) != inside {
						d := math.Sqrt(float64(dx*dx + dy*dy))
						if d < best {
							best = d
						}
					}
				}
			}
			signed := best
			if !inside {
				signed = -best
			}
			// Map [-range, range] to [0, 255] with the edge at 127.5.
			v := uint8(math.Round((signed/sdfRange*0.5 + 0.5) * 255))
			off := dst.PixOffset(dstX+x, dstY+y)
			dst.Pix[off+0] = v
			dst.Pix[off+1] = v
			dst.Pix[off+2] = v
			dst.Pix[off+3] = 255
		}
	}
}

// covAt reports whether the coverage pixel at (x, y) is inside the glyph.
// Out-of-region pixels count as outside.
func covAt(cov *image.Alpha, x, y, rw, rh int) bool {
	if x < 0 || y < 0 || x >= rw || y >= rh {
		return false
	}
	return cov.AlphaAt(x, y).A >= 128
}
