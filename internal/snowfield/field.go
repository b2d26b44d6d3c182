package snowfield

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config fixes the shape of a field for its whole lifetime.
type Config struct {
	Count    int     // number of particles
	AreaSize float64 // diameter of the fall cylinder
	Height   float64 // top of the fall column
	Rand     *rand.Rand
}

// Field owns a fixed-cardinality set of falling particle positions stored as
// a flat x,y,z-interleaved buffer. The buffer is pre-sized once and mutated
// in place every frame; the hot path never allocates.
type Field struct {
	positions []float32
	radius    float64
	height    float64
	rng       *rand.Rand

	windX float64
	windZ float64
}

// New builds a field and scatters every particle uniformly through the
// cylinder: horizontal positions uniform by area over the disc, vertical
// positions uniform over [0, height].
func New(cfg Config) (*Field, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("snowfield: count must be positive (got %d)", cfg.Count)
	}
	if cfg.AreaSize <= 0 {
		return nil, fmt.Errorf("snowfield: area size must be positive (got %f)", cfg.AreaSize)
	}
	if cfg.Height <= 0 {
		return nil, fmt.Errorf("snowfield: height must be positive (got %f)", cfg.Height)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	f := &Field{
		positions: make([]float32, cfg.Count*3),
		radius:    cfg.AreaSize / 2,
		height:    cfg.Height,
		rng:       rng,
	}
	for i := 0; i < len(f.positions); i += 3 {
		x, z := f.sampleDisc()
		f.positions[i] = x
		f.positions[i+1] = float32(rng.Float64() * f.height)
		f.positions[i+2] = z
	}
	return f, nil
}

// FromBuffer wraps an existing position buffer instead of allocating one.
// The buffer length must be a non-zero multiple of 3; anything else is a
// programmer error surfaced at construction, never at runtime.
func FromBuffer(buf []float32, areaSize, height float64, rng *rand.Rand) (*Field, error) {
	if len(buf) == 0 || len(buf)%3 != 0 {
		return nil, fmt.Errorf("snowfield: position buffer length %d is not a non-zero multiple of 3", len(buf))
	}
	if areaSize <= 0 {
		return nil, fmt.Errorf("snowfield: area size must be positive (got %f)", areaSize)
	}
	if height <= 0 {
		return nil, fmt.Errorf("snowfield: height must be positive (got %f)", height)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Field{
		positions: buf,
		radius:    areaSize / 2,
		height:    height,
		rng:       rng,
	}, nil
}

// SetWind sets a horizontal drift velocity applied during Advance. Particles
// blown outside the disc are given a fresh horizontal position so the field
// never escapes its cylinder.
func (f *Field) SetWind(vx, vz float64) {
	f.windX = vx
	f.windZ = vz
}

// Advance moves every particle down by fallSpeed*dt and recycles the ones
// that cross the floor back to the top with a freshly sampled horizontal
// position. Each particle transitions independently; there is no whole-field
// reset. A non-positive dt is a no-op.
func (f *Field) Advance(dt, fallSpeed float64) {
	if dt <= 0 {
		return
	}
	drop := float32(fallSpeed * dt)
	driftX := float32(f.windX * dt)
	driftZ := float32(f.windZ * dt)
	hasWind := driftX != 0 || driftZ != 0
	r2 := float32(f.radius * f.radius)

	p := f.positions
	for i := 0; i < len(p); i += 3 {
		y := p[i+1] - drop
		if y < 0 {
			x, z := f.sampleDisc()
			p[i] = x
			p[i+2] = z
			y = float32(f.height)
		} else if hasWind {
			x := p[i] + driftX
			z := p[i+2] + driftZ
			if x*x+z*z > r2 {
				x, z = f.sampleDisc()
			}
			p[i] = x
			p[i+2] = z
		}
		p[i+1] = y
	}
}

// sampleDisc draws a uniform-by-area point on the horizontal disc. The sqrt
// on the radius fraction cancels the polar-coordinate bias toward the center.
func (f *Field) sampleDisc() (float32, float32) {
	r := math.Sqrt(f.rng.Float64()) * f.radius
	theta := f.rng.Float64() * 2 * math.Pi
	return float32(r * math.Cos(theta)), float32(r * math.Sin(theta))
}

// Positions exposes the live buffer for same-frame, read-only consumption by
// the renderer. The field remains the only writer.
func (f *Field) Positions() []float32 {
	return f.positions
}

// Count returns the fixed number of particles.
func (f *Field) Count() int {
	return len(f.positions) / 3
}

// Radius returns half the configured area diameter.
func (f *Field) Radius() float64 {
	return f.radius
}

// Height returns the top of the fall column.
func (f *Field) Height() float64 {
	return f.height
}
