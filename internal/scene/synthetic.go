package scene

import (
	"math"
	"math/rand"

	"github.com/nqnqxp/extendedRealities-Xiona/internal/audio"
)

// syntheticTap produces magnitude snapshots that swell and ebb like music so
// the field animates during development runs without any audio session.
type syntheticTap struct {
	rng       *rand.Rand
	phaseSlow float64
	phaseFast float64
	bins      []byte
}

func newSyntheticTap(seed int64) *syntheticTap {
	return &syntheticTap{
		rng:  rand.New(rand.NewSource(seed)),
		bins: make([]byte, audio.BinCount),
	}
}

// Next returns the snapshot for one frame. Energy rolls off toward higher
// bins the way real music does, so the mean lands in a plausible range.
func (g *syntheticTap) Next(delta float64) []byte {
	g.phaseSlow += delta * 0.35
	g.phaseFast += delta * 2.1

	level := 0.45 + 0.35*math.Sin(g.phaseSlow) + 0.1*math.Sin(g.phaseFast) + g.rng.Float64()*0.08
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	n := float64(len(g.bins))
	for i := range g.bins {
		rolloff := 1 - float64(i)/n
		v := level * rolloff * (0.85 + g.rng.Float64()*0.3) * 255
		if v > 255 {
			v = 255
		}
		g.bins[i] = byte(v)
	}
	return g.bins
}
