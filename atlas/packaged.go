package atlas

import (
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
)

// manifest mirrors the msdf-atlas-gen JSON layout.
type manifest struct {
	Atlas struct {
		Type          string  `json:"type"`
		DistanceRange float64 `json:"distanceRange"`
		Size          float64 `json:"size"`
		Width         int     `json:"width"`
		Height        int     `json:"height"`
		YOrigin       string  `json:"yOrigin"`
	} `json:"atlas"`
	Metrics struct {
		EmSize     float64 `json:"emSize"`
		LineHeight float64 `json:"lineHeight"`
		Ascender   float64 `json:"ascender"`
		Descender  float64 `json:"descender"`
	} `json:"metrics"`
	Glyphs []manifestGlyph `json:"glyphs"`
}

type manifestGlyph struct {
	Unicode     int32   `json:"unicode"`
	Advance     float32 `json:"advance"`
	PlaneBounds *bounds `json:"planeBounds"`
	AtlasBounds *bounds `json:"atlasBounds"`
}

type bounds struct {
	Left   float32 `json:"left"`
	Bottom float32 `json:"bottom"`
	Right  float32 `json:"right"`
	Top    float32 `json:"top"`
}

// LoadPackaged reads a pre-generated atlas: an msdf-atlas-gen JSON manifest
// and its PNG texture.
func LoadPackaged(manifestPath, imagePath string) (*Atlas, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("atlas: read manifest: %w", err)
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("atlas: open image: %w", err)
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("atlas: decode image: %w", err)
	}

	return ParsePackaged(raw, src)
}

// ParsePackaged builds an atlas from manifest bytes and a decoded image.
// Split out from LoadPackaged so tests can feed in-memory data.
func ParsePackaged(manifestJSON []byte, src image.Image) (*Atlas, error) {
	var m manifest
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, fmt.Errorf("atlas: parse manifest: %w", err)
	}
	if m.Atlas.Width <= 0 || m.Atlas.Height <= 0 {
		return nil, &ConfigError{Field: "atlas", Reason: "missing dimensions"}
	}
	if m.Atlas.DistanceRange <= 0 {
		return nil, &ConfigError{Field: "atlas.distanceRange", Reason: "must be positive"}
	}

	b := src.Bounds()
	if b.Dx() != m.Atlas.Width || b.Dy() != m.Atlas.Height {
		return nil, fmt.Errorf("atlas: image %dx%d does not match manifest %dx%d",
			b.Dx(), b.Dy(), m.Atlas.Width, m.Atlas.Height)
	}

	img, ok := src.(*image.NRGBA)
	if !ok {
		img = image.NewNRGBA(b)
		draw.Draw(img, b, src, b.Min, draw.Src)
	}

	w := float32(m.Atlas.Width)
	h := float32(m.Atlas.Height)
	bottomUp := m.Atlas.YOrigin != "top"

	glyphs := make(map[rune]GlyphInfo, len(m.Glyphs))
	for _, g := range m.Glyphs {
		info := GlyphInfo{Advance: g.Advance}
		if g.PlaneBounds != nil {
			info.PlaneBounds = [4]float32{g.PlaneBounds.Left, g.PlaneBounds.Bottom, g.PlaneBounds.Right, g.PlaneBounds.Top}
		}
		if g.AtlasBounds != nil {
			ab := g.AtlasBounds
			// Texture coordinates are v-down; manifests usually measure
			// atlas bounds from the image bottom.
			if bottomUp {
				info.TexCoords = [4]float32{ab.Left / w, (h - ab.Top) / h, ab.Right / w, (h - ab.Bottom) / h}
			} else {
				info.TexCoords = [4]float32{ab.Left / w, ab.Top / h, ab.Right / w, ab.Bottom / h}
			}
		}
		glyphs[rune(g.Unicode)] = info
	}

	return New(img, m.Atlas.DistanceRange, glyphs)
}
