// Command glyphcast renders an animated colored-glyph wave and exports it
// as a video, a looping animation, or a paired still+video asset.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/atlas"
	"github.com/glyphcast/glyphcast/device"
	"github.com/glyphcast/glyphcast/export"
	"github.com/glyphcast/glyphcast/render"
)

func main() {
	var (
		mode     = flag.String("mode", "video", "export mode: video, anim, or live")
		output   = flag.String("output", "", "output file (default depends on mode)")
		duration = flag.Duration("duration", 3*time.Second, "clip length")
		preset   = flag.String("preset", "1080p", "resolution preset: 720p, 1080p, or square")
		fps      = flag.Float64("fps", 0, "frame rate (0 uses the mode default)")
		cell     = flag.Int("cell", 24, "glyph cell size in pixels")
	)
	flag.Parse()

	p, err := parsePreset(*preset)
	if err != nil {
		log.Fatal(err)
	}

	dev, err := device.Shared()
	if err != nil {
		log.Fatalf("No usable GPU: %v", err)
	}

	at, err := atlas.Generate(atlas.DefaultGenerateConfig())
	if err != nil {
		log.Fatalf("Failed to build glyph atlas: %v", err)
	}

	renderer, err := render.NewGlyphRenderer(dev, at, render.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progress := func(p float64) {
		fmt.Printf("\rExporting... %3.0f%%", p*100)
	}

	switch *mode {
	case "video":
		cfg := export.DefaultVideoConfig()
		cfg.Preset = p
		if *fps > 0 {
			cfg.FrameRate = *fps
		}
		exp, err := export.NewVideoExporter(dev, cfg)
		if err != nil {
			log.Fatal(err)
		}
		dst := orDefault(*output, "glyphcast.avi")
		w, h := p.Dimensions()
		draw := waveRenderFunc(renderer, at, w, h, *cell)
		if err := exp.Export(ctx, dst, *duration, draw, progress); err != nil {
			log.Fatalf("\nExport failed: %v", err)
		}
		fmt.Printf("\nVideo saved to %s\n", dst)

	case "anim":
		cfg := export.DefaultAnimationConfig()
		cfg.Preset = p
		if *fps > 0 {
			cfg.FrameRate = *fps
		}
		exp, err := export.NewAnimationExporter(dev, cfg)
		if err != nil {
			log.Fatal(err)
		}
		dst := orDefault(*output, "glyphcast.webp")
		w, h := p.Dimensions()
		draw := waveRenderFunc(renderer, at, w, h, *cell)
		if err := exp.Export(ctx, dst, *duration, draw, progress); err != nil {
			log.Fatalf("\nExport failed: %v", err)
		}
		fmt.Printf("\nAnimation saved to %s\n", dst)

	case "live":
		cfg := export.DefaultLiveConfig()
		cfg.Video.Preset = p
		if *fps > 0 {
			cfg.Video.FrameRate = *fps
		}
		exp, err := export.NewLiveExporter(dev, cfg)
		if err != nil {
			log.Fatal(err)
		}
		base := orDefault(*output, "glyphcast")
		stillDst, videoDst := base+".jpg", base+".avi"
		w, h := p.Dimensions()
		draw := waveRenderFunc(renderer, at, w, h, *cell)
		pairID, err := exp.Export(ctx, stillDst, videoDst, *duration, draw, progress)
		if err != nil {
			log.Fatalf("\nExport failed: %v", err)
		}
		fmt.Printf("\nLive pair %s saved to %s + %s\n", pairID, stillDst, videoDst)

	default:
		log.Fatalf("Unknown mode %q (want video, anim, or live)", *mode)
	}
}

func parsePreset(name string) (export.Preset, error) {
	switch name {
	case "720p":
		return export.Preset720p, nil
	case "1080p":
		return export.Preset1080p, nil
	case "square":
		return export.PresetSquare, nil
	default:
		return 0, fmt.Errorf("unknown preset %q (want 720p, 1080p, or square)", name)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// waveRenderFunc returns a RenderFunc drawing a traveling wave of glyphs
// whose characters and colors shift with time.
func waveRenderFunc(renderer *render.GlyphRenderer, at *atlas.Atlas, width, height, cell int) export.RenderFunc {
	cols := width / cell
	rows := height / cell
	layout := render.Layout{
		CellWidth:  float32(cell),
		CellHeight: float32(cell),
	}
	glyphs := make([]glyphcast.ColoredGlyph, cols*rows)
	charset := []rune(" .:-=+*#%@")

	return func(ctx context.Context, t float64, target *render.Target) error {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				phase := t*2 + float64(x)*0.3 + float64(y)*0.2
				wave := 0.5 + 0.5*math.Sin(phase)

				hue := math.Mod(t*40+float64(x+y)*6, 360)
				c := glyphcast.HSL(hue, 0.7, 0.25+wave*0.45)

				glyphs[y*cols+x] = glyphcast.ColoredGlyph{
					Char:       charset[int(wave*float64(len(charset)-1))],
					Color:      c,
					Brightness: uint8(wave * 255),
				}
			}
		}

		grid, err := glyphcast.NewGlyphGrid(cols, rows, glyphs)
		if err != nil {
			return err
		}

		renderer.UpdateInstances(grid, at, layout)
		renderer.UpdateUniforms(width, height, t)
		return renderer.Render(target, glyphcast.Black)
	}
}
