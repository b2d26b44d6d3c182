package audio

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// fftSize is the transform length; the tap keeps at least this many
	// recent samples around.
	fftSize = 1024

	// BinCount is the number of frequency-magnitude bins a snapshot holds.
	BinCount = fftSize / 2

	// binSmoothing blends each new spectrum into the previous one so the
	// snapshot does not flicker bin-by-bin between frames.
	binSmoothing = 0.8
)

// Analyser turns a window of recent mono samples into a smoothed
// frequency-magnitude snapshot of BinCount unsigned bytes. It carries the
// per-bin rolling magnitudes across calls and reuses its workspaces, so the
// per-frame path does not allocate.
type Analyser struct {
	window    []float64 // Hann coefficients
	workspace []float64
	smoothed  []float64
	bins      []byte
}

func NewAnalyser() *Analyser {
	a := &Analyser{
		window:    make([]float64, fftSize),
		workspace: make([]float64, fftSize),
		smoothed:  make([]float64, BinCount),
		bins:      make([]byte, BinCount),
	}
	for i := range a.window {
		a.window[i] = hann(float64(i), fftSize)
	}
	return a
}

// Process folds the most recent samples into the rolling per-bin magnitudes
// and returns the byte snapshot. Shorter inputs are zero-padded at the
// front; longer inputs contribute only their tail. The returned slice is
// reused by the next call and must be treated as read-only.
func (a *Analyser) Process(samples []float32) []byte {
	if n := len(samples); n > fftSize {
		samples = samples[n-fftSize:]
	}
	pad := fftSize - len(samples)
	for i := 0; i < pad; i++ {
		a.workspace[i] = 0
	}
	for i, s := range samples {
		a.workspace[pad+i] = float64(s) * a.window[pad+i]
	}

	spectrum := fft.FFTReal(a.workspace)

	for i := 0; i < BinCount; i++ {
		// 4/N compensates the Hann window loss so a full-scale sine
		// lands near 1.0 in its bin.
		mag := cmag(spectrum[i]) * 4.0 / fftSize
		if mag > 1 {
			mag = 1
		}
		a.smoothed[i] = a.smoothed[i]*binSmoothing + mag*(1-binSmoothing)
		a.bins[i] = byte(a.smoothed[i]*255 + 0.5)
	}
	return a.bins
}

func hann(i, size float64) float64 {
	return 0.5 * (1.0 - math.Cos(2.0*math.Pi*i/size))
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}
