package atlas

import (
	"image"
	"math"
	"testing"
)

const testManifest = `{
  "atlas": {
    "type": "msdf",
    "distanceRange": 4,
    "size": 32,
    "width": 128,
    "height": 64,
    "yOrigin": "bottom"
  },
  "metrics": {"emSize": 1, "lineHeight": 1.3, "ascender": 0.93, "descender": -0.24},
  "glyphs": [
    {
      "unicode": 65,
      "advance": 0.6,
      "planeBounds": {"left": -0.05, "bottom": -0.02, "right": 0.62, "top": 0.73},
      "atlasBounds": {"left": 0, "bottom": 32, "right": 32, "top": 64}
    },
    {"unicode": 32, "advance": 0.25}
  ]
}`

func TestParsePackaged(t *testing.T) {
	a, err := ParsePackaged([]byte(testManifest), image.NewNRGBA(image.Rect(0, 0, 128, 64)))
	if err != nil {
		t.Fatalf("ParsePackaged: %v", err)
	}
	if got, want := a.Len(), 2; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	if got, want := a.DistanceRange(), 4.0; got != want {
		t.Errorf("DistanceRange() = %v, want %v", got, want)
	}

	gi, ok := a.Glyph('A')
	if !ok {
		t.Fatal("Glyph('A') not found")
	}
	if got, want := gi.Advance, float32(0.6); got != want {
		t.Errorf("Advance = %v, want %v", got, want)
	}
	// yOrigin bottom: atlas top 64 of a 64-tall image maps to v=0.
	want := [4]float32{0, 0, 0.25, 0.5}
	for i := range want {
		if math.Abs(float64(gi.TexCoords[i]-want[i])) > 1e-6 {
			t.Errorf("TexCoords = %v, want %v", gi.TexCoords, want)
			break
		}
	}

	// Whitespace glyph: no atlas bounds, advance only.
	sp, ok := a.Glyph(' ')
	if !ok {
		t.Fatal("Glyph(' ') not found")
	}
	if sp.TexCoords != ([4]float32{}) {
		t.Errorf("space TexCoords = %v, want zero", sp.TexCoords)
	}
}

func TestParsePackagedSizeMismatch(t *testing.T) {
	_, err := ParsePackaged([]byte(testManifest), image.NewNRGBA(image.Rect(0, 0, 64, 64)))
	if err == nil {
		t.Fatal("ParsePackaged with mismatched image: want error")
	}
}

func TestParsePackagedBadJSON(t *testing.T) {
	_, err := ParsePackaged([]byte("{"), image.NewNRGBA(image.Rect(0, 0, 8, 8)))
	if err == nil {
		t.Fatal("ParsePackaged with truncated JSON: want error")
	}
}
