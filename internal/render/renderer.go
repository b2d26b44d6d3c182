package render

import (
	"github.com/nqnqxp/extendedRealities-Xiona/internal/scene"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/visual"
)

// Options configures a point renderer.
type Options struct {
	Width          int
	Height         int
	Title          string
	FieldRadius    float64
	FieldHeight    float64
	MaskResolution int
}

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.Title == "" {
		o.Title = "winterscene"
	}
	if o.MaskResolution <= 0 {
		o.MaskResolution = 64
	}
}

// camera is a fixed pinhole looking at the middle of the fall column from
// outside the disc along +Z.
type camera struct {
	cx, cy float64
	focal  float64
	dist   float64
	midY   float64
}

func newCamera(opts Options) camera {
	return camera{
		cx:    float64(opts.Width) / 2,
		cy:    float64(opts.Height) / 2,
		focal: float64(opts.Height) * 0.9,
		dist:  opts.FieldRadius * 2.2,
		midY:  opts.FieldHeight / 2,
	}
}

// project maps a world position to screen space. depth is the perspective
// scale factor for that position; sprite sizes multiply by it.
func (c camera) project(x, y, z float64) (sx, sy, depth float64) {
	depth = c.focal / (z + c.dist)
	sx = c.cx + x*depth
	sy = c.cy - (y-c.midY)*depth
	return sx, sy, depth
}

// glowReference is the glow intensity that maps to full sprite brightness,
// the ceiling of the default glow mapping.
const glowReference = 2.65

// glowByte converts a glow intensity into an 8-bit color modulation for the
// additive sprite pass.
func glowByte(glow float64) uint8 {
	v := glow / glowReference * 255
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Null discards every frame. Used when the scene runs headless.
type Null struct{}

func (Null) RenderFrame([]float32, visual.Parameters, float64, float64) error { return nil }

func (Null) Close() error { return nil }

// Multi fans each frame out to several renderers, stopping at the first
// error so a closed display still shuts the loop down.
type Multi []scene.Renderer

func (m Multi) RenderFrame(positions []float32, p visual.Parameters, level, fps float64) error {
	for _, r := range m {
		if err := r.RenderFrame(positions, p, level, fps); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
