package visual

// Parameters carries the per-frame visual control values derived from loudness.
// Values are recomputed every frame and never persisted.
type Parameters struct {
	FallSpeed     float64
	ParticleSize  float64
	GlowIntensity float64
}

// Mapping describes one affine loudness response: Base + Range*s.
// Base is the appearance at silence, Base+Range the ceiling at full loudness.
type Mapping struct {
	Base  float64
	Range float64
}

func (m Mapping) at(s float64) float64 {
	return m.Base + m.Range*s
}

// Mapper turns a loudness scalar into a full set of visual parameters.
// It is pure: no state, no side effects, defined for all inputs.
type Mapper struct {
	FallSpeed     Mapping
	ParticleSize  Mapping
	GlowIntensity Mapping
}

// DefaultMapper returns the tuned response curves for the winter scene.
func DefaultMapper() Mapper {
	return Mapper{
		FallSpeed:     Mapping{Base: 2.6, Range: 3.0},
		ParticleSize:  Mapping{Base: 0.8, Range: 0.5},
		GlowIntensity: Mapping{Base: 1.75, Range: 0.9},
	}
}

// Map evaluates every mapping at loudness s. Inputs outside [0,1] are clamped
// first, so each output stays within [Base, Base+Range].
func (m Mapper) Map(s float64) Parameters {
	s = clamp(s, 0, 1)
	return Parameters{
		FallSpeed:     m.FallSpeed.at(s),
		ParticleSize:  m.ParticleSize.at(s),
		GlowIntensity: m.GlowIntensity.at(s),
	}
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
