package audio

import (
	"sync"

	"github.com/gopxl/beep"
)

// ringSize holds several analysis windows of recent playback.
const ringSize = 4096

// tap sits in the playback chain and records a mono mixdown of the most
// recently streamed samples so the analyser can inspect what is currently
// audible. It is transparent to the audio path.
type tap struct {
	src beep.Streamer

	mu   sync.RWMutex
	ring []float32
	next int
}

func newTap(src beep.Streamer) *tap {
	return &tap{
		src:  src,
		ring: make([]float32, ringSize),
	}
}

func (t *tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.src.Stream(samples)
	if n > 0 {
		t.mu.Lock()
		for i := 0; i < n; i++ {
			t.ring[t.next] = float32((samples[i][0] + samples[i][1]) * 0.5)
			t.next++
			if t.next >= len(t.ring) {
				t.next = 0
			}
		}
		t.mu.Unlock()
	}
	return n, ok
}

func (t *tap) Err() error {
	return t.src.Err()
}

// snapshot copies the most recent len(dst) samples into dst in chronological
// order and returns it.
func (t *tap) snapshot(dst []float32) []float32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(dst)
	if n > len(t.ring) {
		n = len(t.ring)
		dst = dst[:n]
	}
	start := t.next - n
	if start < 0 {
		start += len(t.ring)
	}
	first := copy(dst, t.ring[start:])
	copy(dst[first:], t.ring[:n-first])
	return dst
}
