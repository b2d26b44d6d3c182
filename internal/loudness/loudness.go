package loudness

// Exponential moving average weights. The heavy decay keeps single-frame
// transients from jolting the visuals while sustained level changes still
// come through within a handful of frames.
const (
	decay  = 0.85
	attack = 0.15
)

// maxMagnitude is the largest value an analysis tap bin can hold.
const maxMagnitude = 255.0

// Extractor reduces a frequency-magnitude snapshot to a single smoothed
// scalar in [0,1], carrying one piece of rolling state across frames.
type Extractor struct {
	state float64
}

// New returns an Extractor with its rolling state at 0.
func New() *Extractor {
	return &Extractor{}
}

// SampleFrame folds one magnitude snapshot into the rolling state and returns
// the updated value. The instantaneous loudness is the arithmetic mean of the
// bins normalized by the maximum representable magnitude. Exactly one state
// update happens per call; callers must invoke it at most once per frame and
// skip it entirely while no audio session is active so the last value holds.
func (e *Extractor) SampleFrame(bins []byte) float64 {
	if len(bins) == 0 {
		return e.state
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	inst := float64(sum) / float64(len(bins)) / maxMagnitude
	e.state = clamp01(e.state*decay + inst*attack)
	return e.state
}

// Value returns the rolling state without updating it.
func (e *Extractor) Value() float64 {
	return e.state
}

// Reset clears the rolling state back to 0.
func (e *Extractor) Reset() {
	e.state = 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
