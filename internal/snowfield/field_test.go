package snowfield

import (
	"math"
	"math/rand"
	"testing"
)

func newTestField(t *testing.T, count int, areaSize, height float64) *Field {
	t.Helper()
	f, err := New(Config{
		Count:    count,
		AreaSize: areaSize,
		Height:   height,
		Rand:     rand.New(rand.NewSource(42)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func checkContained(t *testing.T, f *Field) {
	t.Helper()
	p := f.Positions()
	r2 := f.Radius()*f.Radius() + 1e-3
	for i := 0; i < len(p); i += 3 {
		x, y, z := float64(p[i]), float64(p[i+1]), float64(p[i+2])
		if y < 0 || y > f.Height() {
			t.Fatalf("particle %d: y=%f outside [0, %f]", i/3, y, f.Height())
		}
		if x*x+z*z > r2 {
			t.Fatalf("particle %d: horizontal position (%f, %f) outside radius %f", i/3, x, z, f.Radius())
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{Count: 0, AreaSize: 240, Height: 90},
		{Count: -5, AreaSize: 240, Height: 90},
		{Count: 100, AreaSize: 0, Height: 90},
		{Count: 100, AreaSize: 240, Height: -1},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("New(%+v) accepted invalid config", cfg)
		}
	}
}

func TestFromBufferRejectsMalformedBuffer(t *testing.T) {
	for _, n := range []int{0, 1, 2, 4, 7} {
		if _, err := FromBuffer(make([]float32, n), 240, 90, nil); err == nil {
			t.Fatalf("FromBuffer accepted buffer of length %d", n)
		}
	}
	if _, err := FromBuffer(make([]float32, 9), 0, 90, nil); err == nil {
		t.Fatal("FromBuffer accepted zero area size")
	}
}

func TestInitialDistributionContained(t *testing.T) {
	f := newTestField(t, 6000, 240, 90)
	checkContained(t, f)
}

func TestAdvanceKeepsContainment(t *testing.T) {
	f := newTestField(t, 6000, 240, 90)
	for frame := 0; frame < 600; frame++ {
		f.Advance(1.0/60.0, 5.6)
		checkContained(t, f)
	}
}

func TestAdvanceDropsByFallSpeedDelta(t *testing.T) {
	f := newTestField(t, 6000, 240, 90)
	before := make([]float32, len(f.Positions()))
	copy(before, f.Positions())

	f.Advance(1.0/60.0, 2.6)

	maxDrop := 2.6/60.0 + 1e-5
	p := f.Positions()
	for i := 0; i < len(p); i += 3 {
		if p[i+1] == float32(f.Height()) && before[i+1] < p[i+1] {
			continue // recycled
		}
		drop := float64(before[i+1] - p[i+1])
		if drop < 0 || drop > maxDrop {
			t.Fatalf("particle %d dropped by %f, want (0, %f]", i/3, drop, maxDrop)
		}
	}
}

func TestRecycleResetsToTopWithFreshPosition(t *testing.T) {
	buf := []float32{10, 0.01, -20}
	f, err := FromBuffer(buf, 240, 90, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("FromBuffer: %v", err)
	}

	f.Advance(1.0/60.0, 2.6) // 0.01 - 0.0433 < 0 -> recycle

	if buf[1] != 90 {
		t.Fatalf("recycled y = %f, want exactly 90", buf[1])
	}
	if buf[0] == 10 && buf[2] == -20 {
		t.Fatal("recycled particle kept its old horizontal position")
	}
	if x, z := float64(buf[0]), float64(buf[2]); x*x+z*z > 120*120+1e-3 {
		t.Fatalf("recycled position (%f, %f) outside radius 120", x, z)
	}
}

func TestAdvanceIgnoresNonPositiveDelta(t *testing.T) {
	f := newTestField(t, 100, 240, 90)
	before := make([]float32, len(f.Positions()))
	copy(before, f.Positions())

	f.Advance(0, 2.6)
	f.Advance(-1, 2.6)

	for i, v := range f.Positions() {
		if v != before[i] {
			t.Fatalf("non-positive delta mutated buffer at %d: %f -> %f", i, before[i], v)
		}
	}
}

func TestAdvanceMutatesInPlace(t *testing.T) {
	f := newTestField(t, 100, 240, 90)
	p := f.Positions()
	f.Advance(1.0/60.0, 2.6)
	if &p[0] != &f.Positions()[0] {
		t.Fatal("Advance reallocated the position buffer")
	}
}

func TestWindStaysContained(t *testing.T) {
	f := newTestField(t, 2000, 240, 90)
	f.SetWind(30, -18)
	for frame := 0; frame < 600; frame++ {
		f.Advance(1.0/60.0, 2.6)
		checkContained(t, f)
	}
}

func TestUniformAreaSampling(t *testing.T) {
	// With uniform-by-area sampling, half the particles should land inside
	// r/sqrt(2); naive polar sampling would put ~70% there.
	f := newTestField(t, 20000, 240, 90)
	inner := 0
	split := f.Radius() * f.Radius() / 2
	p := f.Positions()
	for i := 0; i < len(p); i += 3 {
		x, z := float64(p[i]), float64(p[i+2])
		if x*x+z*z < split {
			inner++
		}
	}
	frac := float64(inner) / float64(f.Count())
	if math.Abs(frac-0.5) > 0.02 {
		t.Fatalf("inner-half fraction = %f, want ~0.5", frac)
	}
}
