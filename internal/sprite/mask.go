package sprite

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
)

// Radial control stops for the falloff curve. The mid shoulder keeps the
// fade smooth; dropping straight from the center to the rim leaves a
// visible hard ring.
const (
	shoulderRadius = 0.6
	shoulderAlpha  = 0.85
)

var (
	cacheMu   sync.Mutex
	maskCache = map[int]*image.RGBA{}
)

// GenerateMask returns a square resolution×resolution image holding a white
// disc that fades from fully opaque at the center to fully transparent at
// the rim. Generation is deterministic and the result is cached per
// resolution; every particle in a field shares one read-only copy.
func GenerateMask(resolution int) (*image.RGBA, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("sprite: mask resolution must be positive (got %d)", resolution)
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if img, ok := maskCache[resolution]; ok {
		return img, nil
	}
	img := renderMask(resolution)
	maskCache[resolution] = img
	return img, nil
}

func renderMask(resolution int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, resolution, resolution))
	center := (float64(resolution) - 1) / 2
	if center <= 0 {
		img.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
		return img
	}
	for y := 0; y < resolution; y++ {
		for x := 0; x < resolution; x++ {
			d := math.Hypot(float64(x)-center, float64(y)-center) / center
			a := uint8(falloff(d)*255 + 0.5)
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, a})
		}
	}
	return img
}

// falloff interpolates opacity through the three control stops:
// 1.0 at the center, shoulderAlpha at shoulderRadius, 0 at the rim.
func falloff(d float64) float64 {
	switch {
	case d <= 0:
		return 1
	case d < shoulderRadius:
		return 1 - (1-shoulderAlpha)*(d/shoulderRadius)
	case d < 1:
		return shoulderAlpha * (1 - (d-shoulderRadius)/(1-shoulderRadius))
	default:
		return 0
	}
}
