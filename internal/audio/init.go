package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	initOnce sync.Once
	termOnce sync.Once
	initErr  error
)

// Initialize sets up PortAudio once for the process. Only the live-capture
// path needs it; file playback goes through the speaker instead.
func Initialize() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// Terminate balances Initialize. Calling it without a successful Initialize
// is a no-op.
func Terminate() {
	if initErr != nil {
		return
	}
	termOnce.Do(func() {
		_ = portaudio.Terminate()
	})
}
