package visual

import (
	"math"
	"testing"
)

func TestMapDefaultsAtSilence(t *testing.T) {
	p := DefaultMapper().Map(0)
	if math.Abs(p.FallSpeed-2.6) > 1e-9 {
		t.Fatalf("fall speed at silence = %f, want 2.6", p.FallSpeed)
	}
	if math.Abs(p.ParticleSize-0.8) > 1e-9 {
		t.Fatalf("particle size at silence = %f, want 0.8", p.ParticleSize)
	}
	if math.Abs(p.GlowIntensity-1.75) > 1e-9 {
		t.Fatalf("glow at silence = %f, want 1.75", p.GlowIntensity)
	}
}

func TestMapStaysWithinBounds(t *testing.T) {
	m := DefaultMapper()
	for i := 0; i <= 100; i++ {
		s := float64(i) / 100
		p := m.Map(s)
		checkBound(t, "fallSpeed", p.FallSpeed, m.FallSpeed)
		checkBound(t, "particleSize", p.ParticleSize, m.ParticleSize)
		checkBound(t, "glowIntensity", p.GlowIntensity, m.GlowIntensity)
	}
}

func checkBound(t *testing.T, name string, v float64, m Mapping) {
	t.Helper()
	if v < m.Base-1e-9 || v > m.Base+m.Range+1e-9 {
		t.Fatalf("%s=%f outside [%f, %f]", name, v, m.Base, m.Base+m.Range)
	}
}

func TestMapMonotonic(t *testing.T) {
	m := DefaultMapper()
	prev := m.Map(0)
	for i := 1; i <= 50; i++ {
		p := m.Map(float64(i) / 50)
		if p.FallSpeed < prev.FallSpeed || p.ParticleSize < prev.ParticleSize || p.GlowIntensity < prev.GlowIntensity {
			t.Fatalf("parameters decreased at s=%f: %+v -> %+v", float64(i)/50, prev, p)
		}
		prev = p
	}
}

func TestMapClampsOutOfRangeInput(t *testing.T) {
	m := DefaultMapper()
	if got, want := m.Map(-3), m.Map(0); got != want {
		t.Fatalf("Map(-3)=%+v want %+v", got, want)
	}
	if got, want := m.Map(7), m.Map(1); got != want {
		t.Fatalf("Map(7)=%+v want %+v", got, want)
	}
}
