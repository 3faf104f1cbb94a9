package atlas

import "errors"

var (
	// ErrGlyphNotFound is returned by lookups for runes absent from the atlas.
	ErrGlyphNotFound = errors.New("atlas: glyph not found")

	// ErrEmptyAtlas indicates an atlas with no glyphs.
	ErrEmptyAtlas = errors.New("atlas: no glyphs")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}
