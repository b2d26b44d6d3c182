package audio

// Session is a live audio source with an analysis tap. At most one session
// is active at a time; it exists from the first user-initiated play request
// until explicit teardown.
//
// FrequencyData returns the current frequency-magnitude snapshot, refreshed
// once per call. Active reports whether the session is currently producing
// sound; while it is false, callers hold their last loudness state instead
// of sampling.
type Session interface {
	// Play starts or resumes the source. It must only be called in
	// response to an explicit user gesture; sessions never autoplay.
	Play() error
	Pause()
	Active() bool
	FrequencyData() []byte
	Close() error
}
