package export

import (
	"time"

	"github.com/glyphcast/glyphcast/atlas"
	"github.com/glyphcast/glyphcast/render"
)

// Preset names a common output resolution.
type Preset int

const (
	// PresetCustom uses the Width and Height fields directly.
	PresetCustom Preset = iota

	// Preset720p is 1280x720.
	Preset720p

	// Preset1080p is 1920x1080.
	Preset1080p

	// PresetSquare is 1080x1080.
	PresetSquare
)

// Dimensions returns the preset's pixel size, or (0, 0) for PresetCustom.
func (p Preset) Dimensions() (w, h int) {
	switch p {
	case Preset720p:
		return 1280, 720
	case Preset1080p:
		return 1920, 1080
	case PresetSquare:
		return 1080, 1080
	default:
		return 0, 0
	}
}

// VideoConfig holds parameters for continuous video export.
type VideoConfig struct {
	// Preset selects a named resolution. PresetCustom uses Width/Height.
	Preset Preset

	// Width and Height are the output size in pixels when Preset is
	// PresetCustom.
	Width, Height int

	// FrameRate in frames per second.
	// Default: 30
	FrameRate float64

	// Quality is the JPEG quality for encoded frames, 1-100.
	// Default: 90
	Quality int

	// PoolDepth is the capture buffer pool size. Values below
	// render.MinPoolDepth are raised to the minimum.
	// Default: 3
	PoolDepth int
}

// DefaultVideoConfig returns the default video export configuration.
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		Preset:    Preset1080p,
		FrameRate: 30,
		Quality:   90,
		PoolDepth: render.MinPoolDepth,
	}
}

// resolve returns the effective output dimensions.
func (c *VideoConfig) resolve() (w, h int) {
	if c.Preset != PresetCustom {
		return c.Preset.Dimensions()
	}
	return c.Width, c.Height
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *VideoConfig) Validate() error {
	w, h := c.resolve()
	if w < 16 || h < 16 {
		return &atlas.ConfigError{Field: "Width/Height", Reason: "must be at least 16"}
	}
	if w > 8192 || h > 8192 {
		return &atlas.ConfigError{Field: "Width/Height", Reason: "must be at most 8192"}
	}
	if c.FrameRate <= 0 || c.FrameRate > 240 {
		return &atlas.ConfigError{Field: "FrameRate", Reason: "must be in (0, 240]"}
	}
	if c.Quality < 1 || c.Quality > 100 {
		return &atlas.ConfigError{Field: "Quality", Reason: "must be in [1, 100]"}
	}
	return nil
}

// frameDuration returns the duration of one frame.
func (c *VideoConfig) frameDuration() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

// frameCount returns the number of frames covering d.
func (c *VideoConfig) frameCount(d time.Duration) int {
	n := int(d.Seconds()*c.FrameRate + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// AnimationConfig holds parameters for looping animated image export.
type AnimationConfig struct {
	// Preset selects a named resolution. PresetCustom uses Width/Height.
	Preset Preset

	// Width and Height are the output size in pixels when Preset is
	// PresetCustom.
	Width, Height int

	// FrameRate in frames per second. Animated images are typically
	// exported at a lower rate than video.
	// Default: 15
	FrameRate float64

	// PoolDepth is the capture buffer pool size.
	// Default: 3
	PoolDepth int
}

// DefaultAnimationConfig returns the default animation export configuration.
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		Preset:    PresetSquare,
		FrameRate: 15,
		PoolDepth: render.MinPoolDepth,
	}
}

func (c *AnimationConfig) resolve() (w, h int) {
	if c.Preset != PresetCustom {
		return c.Preset.Dimensions()
	}
	return c.Width, c.Height
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *AnimationConfig) Validate() error {
	w, h := c.resolve()
	if w < 16 || h < 16 {
		return &atlas.ConfigError{Field: "Width/Height", Reason: "must be at least 16"}
	}
	if w > 4096 || h > 4096 {
		return &atlas.ConfigError{Field: "Width/Height", Reason: "must be at most 4096"}
	}
	if c.FrameRate <= 0 || c.FrameRate > 60 {
		return &atlas.ConfigError{Field: "FrameRate", Reason: "must be in (0, 60]"}
	}
	return nil
}

func (c *AnimationConfig) frameDuration() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

func (c *AnimationConfig) frameCount(d time.Duration) int {
	n := int(d.Seconds()*c.FrameRate + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// LiveConfig holds parameters for paired still+video export.
type LiveConfig struct {
	// Video configures the motion component.
	Video VideoConfig

	// StillTime is the timestamp within the clip at which the still
	// frame is rendered.
	// Default: half the export duration (when zero).
	StillTime time.Duration

	// StillQuality is the JPEG quality of the still, 1-100.
	// Default: 95
	StillQuality int
}

// DefaultLiveConfig returns the default live pair configuration.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		Video:        DefaultVideoConfig(),
		StillQuality: 95,
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *LiveConfig) Validate() error {
	if err := c.Video.Validate(); err != nil {
		return err
	}
	if c.StillTime < 0 {
		return &atlas.ConfigError{Field: "StillTime", Reason: "must not be negative"}
	}
	if c.StillQuality < 1 || c.StillQuality > 100 {
		return &atlas.ConfigError{Field: "StillQuality", Reason: "must be in [1, 100]"}
	}
	return nil
}
