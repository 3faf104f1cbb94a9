package atlas

import (
	"errors"
	"image"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func TestNew(t *testing.T) {
	glyphs := map[rune]GlyphInfo{'A': {Advance: 0.6}}
	a, err := New(testImage(64, 32), 4, glyphs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := a.Width(), 64; got != want {
		t.Errorf("Width() = %d, want %d", got, want)
	}
	if got, want := a.Height(), 32; got != want {
		t.Errorf("Height() = %d, want %d", got, want)
	}
	if _, ok := a.Glyph('A'); !ok {
		t.Error("Glyph('A') not found")
	}
	if _, ok := a.Glyph('B'); ok {
		t.Error("Glyph('B') unexpectedly found")
	}
}

func TestNewEmpty(t *testing.T) {
	_, err := New(testImage(8, 8), 4, nil)
	if !errors.Is(err, ErrEmptyAtlas) {
		t.Errorf("err = %v, want ErrEmptyAtlas", err)
	}
}

func TestNewBadRange(t *testing.T) {
	_, err := New(testImage(8, 8), 0, map[rune]GlyphInfo{'A': {}})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if ce.Field != "DistanceRange" {
		t.Errorf("ConfigError.Field = %q, want DistanceRange", ce.Field)
	}
}

func TestUnitRange(t *testing.T) {
	a, err := New(testImage(100, 200), 4, map[rune]GlyphInfo{'A': {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ux, uy := a.UnitRange()
	if got, want := ux, float32(0.04); got != want {
		t.Errorf("UnitRange x = %v, want %v", got, want)
	}
	if got, want := uy, float32(0.02); got != want {
		t.Errorf("UnitRange y = %v, want %v", got, want)
	}
}
