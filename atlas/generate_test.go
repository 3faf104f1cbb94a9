package atlas

import (
	"errors"
	"testing"
)

func TestGenerateConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GenerateConfig)
		field  string
	}{
		{"glyph size too small", func(c *GenerateConfig) { c.GlyphSize = 4 }, "GlyphSize"},
		{"glyph size too large", func(c *GenerateConfig) { c.GlyphSize = 512 }, "GlyphSize"},
		{"zero range", func(c *GenerateConfig) { c.Range = 0 }, "Range"},
		{"padding below range", func(c *GenerateConfig) { c.Padding = 2 }, "Padding"},
		{"empty charset", func(c *GenerateConfig) { c.Charset = nil }, "Charset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGenerateConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	cfg := DefaultGenerateConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config Validate() = %v, want nil", err)
	}
}

func TestGenerate(t *testing.T) {
	cfg := DefaultGenerateConfig()
	cfg.GlyphSize = 24
	cfg.Charset = []rune("ABC @.")

	a, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Len() == 0 {
		t.Fatal("Generate produced empty atlas")
	}

	for _, r := range cfg.Charset {
		gi, ok := a.Glyph(r)
		if !ok {
			t.Errorf("Glyph(%q) not found", r)
			continue
		}
		if gi.Advance <= 0 {
			t.Errorf("Glyph(%q).Advance = %v, want > 0", r, gi.Advance)
		}
		tc := gi.TexCoords
		for i, v := range tc {
			if v < 0 || v > 1 {
				t.Errorf("Glyph(%q).TexCoords[%d] = %v, want in [0,1]", r, i, v)
			}
		}
		if tc[0] > tc[2] || tc[1] > tc[3] {
			t.Errorf("Glyph(%q).TexCoords = %v, want min <= max", r, tc)
		}
	}

	// 'A' has visible coverage, so its region must be non-degenerate.
	gi, _ := a.Glyph('A')
	if gi.TexCoords[2] <= gi.TexCoords[0] || gi.TexCoords[3] <= gi.TexCoords[1] {
		t.Errorf("Glyph('A').TexCoords = %v, want non-degenerate region", gi.TexCoords)
	}
}
